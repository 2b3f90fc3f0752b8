// Package respcache memoizes full query responses keyed by normalized query
// text and the requested evidence bound.
//
// Eviction is deliberately FIFO rather than LRU: entries leave in insertion
// order once capacity is reached, and a hit does not refresh an entry's
// position. Query streams observed for this service rarely repeat outside
// short bursts, so recency tracking buys nothing here.
package respcache

import (
	"strconv"
	"strings"
	"sync"

	"github.com/repoqa/repoqa/pkg/types"
)

// DefaultCapacity bounds the cache when the caller passes no capacity
const DefaultCapacity = 100

// Cache is a fixed-capacity FIFO response cache safe for concurrent use
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*types.QueryResponse
	order    []string
}

// New creates a cache. Non-positive capacities fall back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*types.QueryResponse, capacity),
	}
}

// Key builds the cache key from the trimmed, lowercased query text and the
// effective max-sources bound
func Key(query string, maxSources int) string {
	return strings.ToLower(strings.TrimSpace(query)) + ":" + strconv.Itoa(maxSources)
}

// Get returns the cached response for key. Callers must treat the returned
// response as read-only; it is shared with future hits.
func (c *Cache) Get(key string) (*types.QueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, ok := c.entries[key]
	return resp, ok
}

// Put stores a response. Inserting a new key at capacity evicts the oldest
// inserted entry. Overwriting an existing key keeps its original position in
// the eviction order.
func (c *Cache) Put(key string, resp *types.QueryResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = resp
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = resp
	c.order = append(c.order, key)
}

// Len returns the number of cached responses
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry. Called on index clear; conversation activity
// never invalidates the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*types.QueryResponse, c.capacity)
	c.order = nil
}
