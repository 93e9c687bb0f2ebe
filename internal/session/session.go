// Package session keeps the client-side view of a user's chat sessions and
// the active session's messages, reconciled against the remote chat service.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Dhanuzh/plcchat/internal/content"
)

// ErrNoActiveSession is returned by operations that need an active session.
var ErrNoActiveSession = errors.New("no active session")

// ChatSession is the summary of one conversation thread.
type ChatSession struct {
	ID           string    `json:"session_id" yaml:"session_id"`
	Title        string    `json:"title" yaml:"title"`
	LastMessage  string    `json:"last_message,omitempty" yaml:"last_message,omitempty"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
	CreatedAt    time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session's message list. Raw is the content as
// received or sent; Content is its normalized form and is never edited in
// place.
type Message struct {
	ID        string
	Role      Role
	Raw       content.Raw
	Content   content.Normalized
	Timestamp time.Time // zero until confirmed by the server
}

// NewMessage builds a message and derives its normalized content. Only
// assistant replies are interpreted; user text is always shown as typed.
func NewMessage(role Role, raw content.Raw, ts time.Time) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Raw:       raw,
		Content:   normalizeFor(role, raw),
		Timestamp: ts,
	}
}

// Text returns the message as plain text, the form sent back to the service
// as conversation history.
func (m Message) Text() string {
	if m.Content == nil {
		return content.DisplayString(m.Raw)
	}
	return content.String(m.Content)
}

func normalizeFor(role Role, raw content.Raw) content.Normalized {
	if role == RoleAssistant {
		return content.Normalize(raw)
	}
	return content.PlainText{Text: content.DisplayString(raw)}
}

// Service is the remote chat/session service.
type Service interface {
	ListSessions(ctx context.Context) ([]ChatSession, error)
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)
	CreateSession(ctx context.Context) (string, error)
	RenameSession(ctx context.Context, sessionID, title string) error
	DeleteSession(ctx context.Context, sessionID string) error
	// SendMessage posts text with the prior history and returns the reply
	// content in whatever shape the service produced it.
	SendMessage(ctx context.Context, sessionID, text string, history []Message) (content.Raw, error)
}

// Cache persists the last known sessions and messages for the signed-in
// user.
type Cache interface {
	SaveSessions(ctx context.Context, sessions []ChatSession) error
	LoadSessions(ctx context.Context) ([]ChatSession, error)
	SaveMessages(ctx context.Context, sessionID string, msgs []Message) error
	LoadMessages(ctx context.Context, sessionID string) ([]Message, error)
}
