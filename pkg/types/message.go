package types

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message written by the querying user
	RoleUser Role = "user"

	// RoleAssistant marks a generated answer
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation's append-only history.
// Assistant messages may carry the source references that backed the answer.
type Message struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Sources   []SourceReference `json:"sources,omitempty"`
}

// Validate checks if the message is well formed
func (m *Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return ErrInvalidRole
	}

	if m.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
