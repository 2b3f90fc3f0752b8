// Package ranker orders index candidates by relevance to a query.
//
// Scoring is additive across independent signals, each expressed as a
// (predicate, points) rule evaluated uniformly over every candidate. Path,
// language, and extension signals are pure string checks; content relevance
// is computed only for the best path-ranked candidates so that ranking
// performs a bounded number of file reads per query.
package ranker

import (
	"sort"
	"strings"

	"github.com/repoqa/repoqa/pkg/types"
)

// DefaultContentScanLimit bounds how many candidates get content scoring
const DefaultContentScanLimit = 10

// ScoredCandidate pairs a candidate with its raw relevance score
type ScoredCandidate struct {
	Candidate types.FileCandidate
	Score     float64
}

// Ranker scores and orders file candidates for queries
type Ranker struct {
	rules            []rule
	contentScanLimit int
}

// Option adjusts ranker construction
type Option func(*Ranker)

// WithContentScanLimit overrides how many path-ranked candidates are read
// for content scoring
func WithContentScanLimit(n int) Option {
	return func(r *Ranker) {
		r.contentScanLimit = n
	}
}

// New creates a ranker with the default rule set
func New(opts ...Option) *Ranker {
	r := &Ranker{
		rules:            defaultRules(),
		contentScanLimit: DefaultContentScanLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores each candidate against the query and returns the positive
// scorers ordered by score descending. Ties keep the candidates' original
// crawl order. Candidates whose content cannot be read simply receive no
// content sub-score; read failures never surface as errors.
func (r *Ranker) Rank(candidates []types.FileCandidate, query string) []ScoredCandidate {
	q := tokenize(query)

	scored := make([]ScoredCandidate, len(candidates))
	for i := range candidates {
		facts := factsFor(&candidates[i])
		var score float64
		for _, rl := range r.rules {
			if hits := rl.hits(facts, q); hits > 0 {
				score += rl.points * float64(hits)
			}
		}
		scored[i] = ScoredCandidate{Candidate: candidates[i], Score: score}
	}

	// Content relevance only for the strongest path scorers, and only when
	// the query produced tokens to look for.
	if len(q.tokens) > 0 {
		for _, idx := range r.topByPathScore(scored) {
			scored[idx].Score += contentScore(&scored[idx].Candidate, q)
		}
	}

	kept := make([]ScoredCandidate, 0, len(scored))
	for i := range scored {
		if scored[i].Score > 0 {
			kept = append(kept, scored[i])
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept
}

// topByPathScore returns the indexes of the contentScanLimit best candidates
// by path-only score, preferring earlier crawl order on ties
func (r *Ranker) topByPathScore(scored []ScoredCandidate) []int {
	idx := make([]int, len(scored))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scored[idx[a]].Score > scored[idx[b]].Score
	})
	if len(idx) > r.contentScanLimit {
		idx = idx[:r.contentScanLimit]
	}
	return idx
}

// queryTerms holds the distinct tokens of a query in first-seen order
type queryTerms struct {
	tokens []string
	set    map[string]struct{}
}

func (q *queryTerms) has(token string) bool {
	_, ok := q.set[token]
	return ok
}

func (q *queryTerms) hasAny(tokens []string) bool {
	for _, t := range tokens {
		if q.has(t) {
			return true
		}
	}
	return false
}

// stopWords are dropped during tokenization so that question scaffolding
// ("what is the ...") never influences scoring.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "do": {}, "does": {}, "did": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "will": {}, "what": {},
	"which": {}, "who": {}, "how": {}, "why": {}, "when": {}, "where": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "there": {}, "here": {},
	"i": {}, "you": {}, "we": {}, "they": {}, "it": {}, "its": {}, "my": {},
	"your": {}, "our": {}, "their": {}, "me": {}, "us": {}, "them": {},
	"and": {}, "or": {}, "not": {}, "no": {}, "of": {}, "in": {}, "on": {},
	"at": {}, "by": {}, "for": {}, "with": {}, "about": {}, "to": {},
	"from": {}, "as": {}, "if": {}, "so": {}, "than": {}, "then": {},
	"have": {}, "has": {}, "had": {},
}

const tokenCutset = ".,;:!?\"'()[]{}`"

// tokenize lowercases the query, strips punctuation from token edges, and
// drops stop words and duplicates while preserving first-seen order
func tokenize(query string) *queryTerms {
	q := &queryTerms{set: make(map[string]struct{})}
	for _, field := range strings.Fields(strings.ToLower(query)) {
		token := strings.Trim(field, tokenCutset)
		if token == "" {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, seen := q.set[token]; seen {
			continue
		}
		q.set[token] = struct{}{}
		q.tokens = append(q.tokens, token)
	}
	return q
}
