package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/session"
)

var _ session.Service = (*Client)(nil)

type sessionJSON struct {
	SessionID    string   `json:"session_id"`
	Title        string   `json:"title"`
	LastMessage  *string  `json:"last_message"`
	MessageCount int      `json:"message_count"`
	CreatedAt    flexTime `json:"created_at"`
	UpdatedAt    flexTime `json:"updated_at"`
}

type messageJSON struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp flexTime        `json:"timestamp"`
}

type historyJSON struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseJSON struct {
	Response           json.RawMessage `json:"response"`
	StructuredResponse json.RawMessage `json:"structured_response"`
	Success            *bool           `json:"success"`
}

func sessionPath(id string) string {
	return "/chat/sessions/" + url.PathEscape(id)
}

// ListSessions returns the user's sessions, most recent first.
func (c *Client) ListSessions(ctx context.Context) ([]session.ChatSession, error) {
	var out struct {
		Sessions []sessionJSON `json:"sessions"`
		Total    int           `json:"total"`
	}
	if err := c.do(ctx, "list sessions", http.MethodGet, "/chat/sessions", limitQuery(c.sessionLimit), nil, &out); err != nil {
		return nil, err
	}
	sessions := make([]session.ChatSession, len(out.Sessions))
	for i, s := range out.Sessions {
		sessions[i] = session.ChatSession{
			ID:           s.SessionID,
			Title:        s.Title,
			MessageCount: s.MessageCount,
			CreatedAt:    s.CreatedAt.Time,
			UpdatedAt:    s.UpdatedAt.Time,
		}
		if s.LastMessage != nil {
			sessions[i].LastMessage = *s.LastMessage
		}
	}
	return sessions, nil
}

// GetMessages returns a session's messages with their content as received.
func (c *Client) GetMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	var out struct {
		SessionID string        `json:"session_id"`
		Messages  []messageJSON `json:"messages"`
		Total     int           `json:"total"`
	}
	if err := c.do(ctx, "get messages", http.MethodGet, sessionPath(sessionID)+"/messages", limitQuery(c.messageLimit), nil, &out); err != nil {
		return nil, err
	}
	msgs := make([]session.Message, len(out.Messages))
	for i, m := range out.Messages {
		msgs[i] = session.NewMessage(session.Role(m.Role), content.FromJSON(m.Content), m.Timestamp.Time)
	}
	return msgs, nil
}

// CreateSession allocates a session titled DefaultTitle.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	in := map[string]string{"title": DefaultTitle}
	if err := c.do(ctx, "create session", http.MethodPost, "/chat/sessions", nil, in, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", &ServiceError{Op: "create session", StatusCode: http.StatusOK, Detail: "response has no session_id"}
	}
	return out.SessionID, nil
}

// RenameSession sets a session's title.
func (c *Client) RenameSession(ctx context.Context, sessionID, title string) error {
	in := map[string]string{"title": title}
	return c.do(ctx, "rename session", http.MethodPut, sessionPath(sessionID), nil, in, nil)
}

// DeleteSession removes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, "delete session", http.MethodDelete, sessionPath(sessionID), nil, nil, nil)
}

// SendMessage posts a user message and returns the assistant reply. A
// structured_response, when present, is preferred over the response text.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string, history []session.Message) (content.Raw, error) {
	hist := make([]historyJSON, 0, len(history))
	for _, m := range history {
		hist = append(hist, historyJSON{Role: string(m.Role), Content: historyText(m)})
	}
	in := struct {
		Message             string        `json:"message"`
		ConversationHistory []historyJSON `json:"conversation_history"`
	}{Message: text, ConversationHistory: hist}

	var out chatResponseJSON
	if err := c.do(ctx, "send message", http.MethodPost, sessionPath(sessionID)+"/messages", nil, in, &out); err != nil {
		return nil, err
	}
	if out.Success != nil && !*out.Success {
		return nil, &ServiceError{Op: "send message", StatusCode: http.StatusOK, Detail: "backend reported failure"}
	}
	if structured := bytes.TrimSpace(out.StructuredResponse); len(structured) > 0 && string(structured) != "null" {
		return content.FromJSON(structured), nil
	}
	return content.FromJSON(out.Response), nil
}

// historyText is the message as the backend stores it: text replies verbatim,
// anything else in its readable form.
func historyText(m session.Message) string {
	if t, ok := m.Raw.(content.Text); ok {
		return string(t)
	}
	return m.Text()
}

// flexTime accepts the timestamp layouts the backend emits: RFC 3339 with or
// without a zone, or null.
type flexTime struct{ time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// null and non-string values leave the zero time.
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}
