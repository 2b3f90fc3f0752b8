package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/repoqa/repoqa/pkg/types"
)

const (
	// PlaceholderTitle is carried by a conversation until a real title can
	// be derived from its first user message.
	PlaceholderTitle = "New Conversation"

	// DefaultContextWindow is the number of trailing messages included in
	// the prompt context.
	DefaultContextWindow = 5

	titleLimit = 30
)

// Conversation is one chat thread. The message sequence is append-only and
// guarded by the conversation's own mutex, so appends on one conversation
// never block reads or appends on another.
type Conversation struct {
	id        string
	sessionID string
	createdAt time.Time

	mu           sync.Mutex
	messages     []types.Message
	title        string
	lastActivity time.Time
}

func newConversation(id, sessionID string, now time.Time) *Conversation {
	return &Conversation{
		id:           id,
		sessionID:    sessionID,
		createdAt:    now,
		title:        PlaceholderTitle,
		lastActivity: now,
	}
}

// ID returns the conversation identifier
func (c *Conversation) ID() string { return c.id }

// SessionID returns the owning session identifier
func (c *Conversation) SessionID() string { return c.sessionID }

// Append adds one message to the history. It is the only mutator of message
// order. It updates the last-activity timestamp and, while the conversation
// still carries the placeholder title and holds at least two messages,
// derives the title from the first user message.
func (c *Conversation) Append(msg types.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(msg)
	return nil
}

// AppendExchange records a user message and the assistant's answer under a
// single lock acquisition, so concurrent exchanges on the same conversation
// interleave as whole pairs rather than single messages.
func (c *Conversation) AppendExchange(user, assistant types.Message) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user message: %w", err)
	}
	if err := assistant.Validate(); err != nil {
		return fmt.Errorf("invalid assistant message: %w", err)
	}
	now := time.Now().UTC()
	if user.Timestamp.IsZero() {
		user.Timestamp = now
	}
	if assistant.Timestamp.IsZero() {
		assistant.Timestamp = now
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(user)
	c.appendLocked(assistant)
	return nil
}

func (c *Conversation) appendLocked(msg types.Message) {
	c.messages = append(c.messages, msg)
	c.lastActivity = time.Now().UTC()

	if c.title == PlaceholderTitle && len(c.messages) >= 2 {
		for i := range c.messages {
			if c.messages[i].Role == types.RoleUser {
				c.title = deriveTitle(c.messages[i].Content)
				break
			}
		}
	}
}

// History returns the last limit messages, oldest first. A non-positive
// limit returns the full history. The returned slice is a copy.
func (c *Conversation) History(limit int) []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out
}

// BuildContext formats the last window messages as alternating "User:" and
// "Assistant:" lines, oldest first, for inclusion in the next prompt. A
// window <= 0 falls back to DefaultContextWindow. Returns the empty string
// for a conversation with no messages.
func (c *Conversation) BuildContext(window int) string {
	if window <= 0 {
		window = DefaultContextWindow
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.messages
	if len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}

	parts := make([]string, 0, len(msgs))
	for i := range msgs {
		role := "Assistant"
		if msgs[i].Role == types.RoleUser {
			role = "User"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", role, msgs[i].Content))
	}
	return strings.Join(parts, "\n")
}

// Len returns the number of messages in the conversation
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// ContextSummary reports message counts and the latest exchange
func (c *Conversation) ContextSummary() types.ContextSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := types.ContextSummary{
		ConversationID: c.id,
		MessageCount:   len(c.messages),
		CreatedAt:      c.createdAt,
		LastUpdated:    c.lastActivity,
	}
	for i := range c.messages {
		switch c.messages[i].Role {
		case types.RoleUser:
			out.UserMessageCount++
			out.LastQuery = c.messages[i].Content
		case types.RoleAssistant:
			out.AssistantMessageCount++
			out.LastResponse = c.messages[i].Content
		}
	}
	return out
}

// Info returns a point-in-time summary of the conversation
func (c *Conversation) Info() types.ConversationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return types.ConversationInfo{
		ConversationID: c.id,
		SessionID:      c.sessionID,
		Title:          c.title,
		MessageCount:   len(c.messages),
		CreatedAt:      c.createdAt,
		LastActivity:   c.lastActivity,
	}
}

func (c *Conversation) lastActivityAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// deriveTitle cuts the first user message down to a display title
func deriveTitle(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit]) + "..."
}
