// Package sessiontest provides an in-memory session.Service for tests.
package sessiontest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/session"
)

// Fake is an in-memory chat service. Set the *Err fields to make the
// matching operation fail; set the Before* hooks to block or observe calls.
type Fake struct {
	mu sync.Mutex

	sessions []session.ChatSession
	messages map[string][]session.Message
	calls    []string
	history  [][]session.Message
	nextID   int

	// Reply is returned by SendMessage.
	Reply content.Raw

	ListErr, GetErr, CreateErr, RenameErr, DeleteErr, SendErr error

	BeforeGet  func(sessionID string)
	BeforeSend func(sessionID string)
}

// New returns a fake holding sessions in the given order.
func New(sessions ...session.ChatSession) *Fake {
	return &Fake{
		sessions: sessions,
		messages: make(map[string][]session.Message),
	}
}

// SetMessages stores the persisted messages of a session.
func (f *Fake) SetMessages(sessionID string, msgs ...session.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[sessionID] = msgs
}

// Calls returns the recorded calls, e.g. "list", "get:s1", "rename:s1".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Count returns how many recorded calls start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Histories returns the history argument of each SendMessage call.
func (f *Fake) Histories() [][]session.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.history)
}

// Title returns the stored title of a session.
func (f *Fake) Title(sessionID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == sessionID {
			return s.Title
		}
	}
	return ""
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *Fake) ListSessions(ctx context.Context) ([]session.ChatSession, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return slices.Clone(f.sessions), nil
}

func (f *Fake) GetMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	f.record("get:" + sessionID)
	if f.BeforeGet != nil {
		f.BeforeGet(sessionID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return slices.Clone(f.messages[sessionID]), nil
}

func (f *Fake) CreateSession(ctx context.Context) (string, error) {
	f.record("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.nextID++
	id := fmt.Sprintf("new-%d", f.nextID)
	f.sessions = append([]session.ChatSession{{ID: id, Title: "New Chat", CreatedAt: time.Now()}}, f.sessions...)
	return id, nil
}

func (f *Fake) RenameSession(ctx context.Context, sessionID, title string) error {
	f.record("rename:" + sessionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RenameErr != nil {
		return f.RenameErr
	}
	for i := range f.sessions {
		if f.sessions[i].ID == sessionID {
			f.sessions[i].Title = title
			return nil
		}
	}
	return fmt.Errorf("session not found: %s", sessionID)
}

func (f *Fake) DeleteSession(ctx context.Context, sessionID string) error {
	f.record("delete:" + sessionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.sessions = slices.DeleteFunc(f.sessions, func(s session.ChatSession) bool { return s.ID == sessionID })
	delete(f.messages, sessionID)
	return nil
}

func (f *Fake) SendMessage(ctx context.Context, sessionID, text string, history []session.Message) (content.Raw, error) {
	f.record("send:" + sessionID)
	f.mu.Lock()
	f.history = append(f.history, slices.Clone(history))
	f.mu.Unlock()
	if f.BeforeSend != nil {
		f.BeforeSend(sessionID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return nil, f.SendErr
	}
	now := time.Now()
	f.messages[sessionID] = append(f.messages[sessionID],
		session.NewMessage(session.RoleUser, content.Text(text), now),
		session.NewMessage(session.RoleAssistant, f.Reply, now),
	)
	return f.Reply, nil
}
