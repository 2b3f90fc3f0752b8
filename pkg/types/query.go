package types

import "time"

// DefaultMaxSources bounds evidence size when the request leaves it unset
const DefaultMaxSources = 5

// QueryRequest is the wire shape of an incoming question. Session and
// conversation identifiers are optional; missing or unknown identifiers are
// provisioned rather than rejected.
type QueryRequest struct {
	Query          string  `json:"query"`
	ConversationID string  `json:"conversation_id,omitempty"`
	SessionID      string  `json:"session_id,omitempty"`
	MaxSources     int     `json:"max_sources,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
}

// EffectiveMaxSources resolves the requested evidence bound
func (r *QueryRequest) EffectiveMaxSources() int {
	if r.MaxSources <= 0 {
		return DefaultMaxSources
	}
	return r.MaxSources
}

// QueryResponse is the wire shape of an answered question
type QueryResponse struct {
	Response       string            `json:"response"`
	Sources        []SourceReference `json:"sources"`
	ConversationID string            `json:"conversation_id"`
	SessionID      string            `json:"session_id"`
	Timestamp      time.Time         `json:"timestamp"`
	Model          string            `json:"model"`
	TokensUsed     int               `json:"tokens_used,omitempty"`
}

// SessionInfo summarizes one session for the management surface
type SessionInfo struct {
	SessionID         string    `json:"session_id"`
	ConversationCount int       `json:"conversation_count"`
	TotalMessages     int       `json:"total_messages"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
}

// ConversationInfo summarizes one conversation for the management surface
type ConversationInfo struct {
	ConversationID string    `json:"conversation_id"`
	SessionID      string    `json:"session_id"`
	Title          string    `json:"title"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
}

// ClearResult reports what a session clear removed
type ClearResult struct {
	SessionsCleared      int    `json:"sessions_cleared"`
	ConversationsCleared int    `json:"conversations_cleared"`
	Message              string `json:"message"`
}

// ContextSummary describes a conversation's running state without carrying
// the full message list
type ContextSummary struct {
	ConversationID        string    `json:"conversation_id"`
	MessageCount          int       `json:"message_count"`
	UserMessageCount      int       `json:"user_message_count"`
	AssistantMessageCount int       `json:"assistant_message_count"`
	LastQuery             string    `json:"last_query,omitempty"`
	LastResponse          string    `json:"last_response,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	LastUpdated           time.Time `json:"last_updated"`
}
