// Package session owns the in-memory session to conversation hierarchy and
// the message history inside each conversation. Sessions group the
// conversations of one client; conversations hold append-only message
// sequences. Nothing here touches disk, and all state dies with the process.
//
// Locking is two-level: the registry mutex guards the session and
// conversation indexes (short create/lookup/list sections only), and each
// conversation guards its own message list. Long-running work such as text
// generation must never run under either lock.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/repoqa/repoqa/pkg/types"
)

// sessionRecord tracks one session and the ordered ids of its conversations
type sessionRecord struct {
	id              string
	createdAt       time.Time
	conversationIDs []string
}

// Registry is the single owner of sessions and conversation records.
// Construct one per engine; there is no package-level instance.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[string]*sessionRecord
	conversations map[string]*Conversation
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[string]*sessionRecord),
		conversations: make(map[string]*Conversation),
	}
}

// ResolveOrCreateSession returns the session id to use for a request.
// An empty id allocates a fresh session. An unknown id registers a new
// session under that id rather than erroring, so clients may pre-generate
// identifiers.
func (r *Registry) ResolveOrCreateSession(id string) string {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSessionLocked(id)
	return id
}

// ResolveOrCreateConversation returns the conversation to use for a request
// against the given session. An empty or unknown conversation id creates a
// new conversation under the session, recording the association in both the
// conversation record and the session's conversation-id list. The returned
// pointer stays valid for the whole request even if the conversation is
// cleared from the registry concurrently.
func (r *Registry) ResolveOrCreateConversation(sessionID, conversationID string) *Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.ensureSessionLocked(sessionID)

	if conversationID != "" {
		if conv, ok := r.conversations[conversationID]; ok {
			return conv
		}
	} else {
		conversationID = uuid.NewString()
	}

	conv := newConversation(conversationID, sessionID, time.Now().UTC())
	r.conversations[conversationID] = conv
	sess.conversationIDs = append(sess.conversationIDs, conversationID)
	return conv
}

// Conversation looks up a conversation by id
func (r *Registry) Conversation(id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %q: %w", id, types.ErrConversationNotFound)
	}
	return conv, nil
}

// SessionInfo summarizes a known session. Unknown ids error; leniency is
// reserved for the query path.
func (r *Registry) SessionInfo(id string) (types.SessionInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return types.SessionInfo{}, fmt.Errorf("session %q: %w", id, types.ErrSessionNotFound)
	}
	return r.sessionInfoLocked(sess), nil
}

// ListSessions summarizes every live session
func (r *Registry) ListSessions() []types.SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.SessionInfo, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, r.sessionInfoLocked(sess))
	}
	return out
}

// ListConversations summarizes the conversations of one session in creation
// order
func (r *Registry) ListConversations(sessionID string) ([]types.ConversationInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, types.ErrSessionNotFound)
	}

	out := make([]types.ConversationInfo, 0, len(sess.conversationIDs))
	for _, id := range sess.conversationIDs {
		if conv, ok := r.conversations[id]; ok {
			out = append(out, conv.Info())
		}
	}
	return out, nil
}

// ConversationInfo summarizes a known conversation
func (r *Registry) ConversationInfo(id string) (types.ConversationInfo, error) {
	conv, err := r.Conversation(id)
	if err != nil {
		return types.ConversationInfo{}, err
	}
	return conv.Info(), nil
}

// Clear removes the named session and its conversations. With clearAll set
// it purges every session and conversation in the registry. Clearing an
// unknown session removes nothing and reports zero counts.
func (r *Registry) Clear(sessionID string, clearAll bool) types.ClearResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if clearAll {
		res := types.ClearResult{
			SessionsCleared:      len(r.sessions),
			ConversationsCleared: len(r.conversations),
		}
		r.sessions = make(map[string]*sessionRecord)
		r.conversations = make(map[string]*Conversation)
		res.Message = fmt.Sprintf("Cleared %d session(s) and %d conversation(s)",
			res.SessionsCleared, res.ConversationsCleared)
		return res
	}

	sess, ok := r.sessions[sessionID]
	if !ok {
		return types.ClearResult{Message: fmt.Sprintf("Session %s not found", sessionID)}
	}

	for _, id := range sess.conversationIDs {
		delete(r.conversations, id)
	}
	cleared := len(sess.conversationIDs)
	delete(r.sessions, sessionID)

	return types.ClearResult{
		SessionsCleared:      1,
		ConversationsCleared: cleared,
		Message:              fmt.Sprintf("Cleared session %s and %d conversation(s)", sessionID, cleared),
	}
}

// RemoveConversation deletes one conversation and detaches it from its
// session. Unknown ids error.
func (r *Registry) RemoveConversation(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %q: %w", id, types.ErrConversationNotFound)
	}
	delete(r.conversations, id)

	if sess, ok := r.sessions[conv.sessionID]; ok {
		for i, cid := range sess.conversationIDs {
			if cid == id {
				sess.conversationIDs = append(sess.conversationIDs[:i], sess.conversationIDs[i+1:]...)
				break
			}
		}
	}
	return nil
}

// RemoveAllConversations deletes every conversation while keeping the
// sessions themselves alive. Returns the number removed.
func (r *Registry) RemoveAllConversations() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.conversations)
	r.conversations = make(map[string]*Conversation)
	for _, sess := range r.sessions {
		sess.conversationIDs = nil
	}
	return count
}

// Reset drops all registry state. Used by tests and shutdown.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*sessionRecord)
	r.conversations = make(map[string]*Conversation)
}

func (r *Registry) ensureSessionLocked(id string) *sessionRecord {
	sess, ok := r.sessions[id]
	if !ok {
		sess = &sessionRecord{id: id, createdAt: time.Now().UTC()}
		r.sessions[id] = sess
	}
	return sess
}

// sessionInfoLocked aggregates message counts and activity across the
// session's conversations. Caller holds at least the read lock.
func (r *Registry) sessionInfoLocked(sess *sessionRecord) types.SessionInfo {
	info := types.SessionInfo{
		SessionID:         sess.id,
		ConversationCount: len(sess.conversationIDs),
		CreatedAt:         sess.createdAt,
		LastActivity:      sess.createdAt,
	}
	for _, id := range sess.conversationIDs {
		conv, ok := r.conversations[id]
		if !ok {
			continue
		}
		info.TotalMessages += conv.Len()
		if at := conv.lastActivityAt(); at.After(info.LastActivity) {
			info.LastActivity = at
		}
	}
	return info
}
