package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is the client-side session state: the session list, the active
// session and its messages. It is the only owner of that state; callers get
// copies and must re-resolve sessions by id after every reload.
type Store struct {
	mu    sync.Mutex
	svc   Service
	cache Cache
	log   *zap.Logger

	sessions []ChatSession
	activeID string
	messages []Message

	// gen is bumped whenever the active session changes, so a message fetch
	// that was superseded cannot overwrite newer state.
	gen uint64
	// loading is set while the active session's messages are being fetched.
	loading bool
	// reloaded is set once a reload has settled the list, after which the
	// cache is never painted over it.
	reloaded bool
}

// NewStore creates a store backed by svc. cache and log may be nil.
func NewStore(svc Service, cache Cache, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{svc: svc, cache: cache, log: log}
}

// Restore paints the session list from the cache. It does nothing once a
// reload has settled the list, even when that list was empty.
func (s *Store) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.reloaded {
		s.sessions = cached
	}
	return nil
}

// Reload fetches the session list. On failure the list becomes empty and the
// active session is cleared. On success the active session is re-resolved by
// id and cleared if it is gone; then, if nothing is active and at least one
// session exists, the first one is selected.
func (s *Store) Reload(ctx context.Context) error {
	sessions, err := s.svc.ListSessions(ctx)
	if err != nil {
		s.mu.Lock()
		s.sessions = nil
		s.reloaded = true
		s.clearActiveLocked()
		s.mu.Unlock()
		s.log.Warn("list sessions failed", zap.Error(err))
		return fmt.Errorf("list sessions: %w", err)
	}

	s.mu.Lock()
	s.sessions = sessions
	s.reloaded = true
	if _, ok := s.lookupLocked(s.activeID); !ok && s.activeID != "" {
		s.log.Debug("active session gone", zap.String("session", s.activeID))
		s.clearActiveLocked()
	}
	first := ""
	if s.activeID == "" && len(sessions) > 0 {
		first = sessions[0].ID
	}
	s.mu.Unlock()

	s.saveSessions(ctx, sessions)

	if first != "" {
		return s.Select(ctx, first)
	}
	return nil
}

// Select makes id the active session and loads its messages. Loading reports
// true until the fetch settles. On failure the message list is left empty,
// never stale.
func (s *Store) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.activeID = id
	s.messages = nil
	s.loading = true
	s.mu.Unlock()

	msgs, err := s.svc.GetMessages(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// Another select, create or delete happened meanwhile.
		return nil
	}
	s.loading = false
	if err != nil {
		s.messages = nil
		s.log.Warn("load messages failed", zap.String("session", id), zap.Error(err))
		return fmt.Errorf("load messages for %s: %w", id, err)
	}
	for i := range msgs {
		msgs[i].Content = normalizeFor(msgs[i].Role, msgs[i].Raw)
	}
	s.messages = msgs
	s.saveMessagesLocked(ctx, id)
	return nil
}

// Create allocates a new session, makes it active with no messages and
// reloads the list to pick up server defaults such as the title.
func (s *Store) Create(ctx context.Context) (string, error) {
	id, err := s.svc.CreateSession(ctx)
	if err != nil {
		s.log.Warn("create session failed", zap.Error(err))
		return "", fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	s.gen++
	s.activeID = id
	s.messages = []Message{}
	s.loading = false
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// Rename sets a session's title. A blank title is ignored without contacting
// the service.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	if err := s.svc.RenameSession(ctx, id, title); err != nil {
		s.log.Warn("rename session failed", zap.String("session", id), zap.Error(err))
		return fmt.Errorf("rename session %s: %w", id, err)
	}
	return s.Reload(ctx)
}

// Delete removes a session. If it was active, the active session and its
// messages are cleared before the list is reloaded.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.svc.DeleteSession(ctx, id); err != nil {
		s.log.Warn("delete session failed", zap.String("session", id), zap.Error(err))
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	s.mu.Lock()
	if s.activeID == id {
		s.clearActiveLocked()
	}
	s.sessions = slices.DeleteFunc(s.sessions, func(cs ChatSession) bool { return cs.ID == id })
	s.mu.Unlock()

	return s.Reload(ctx)
}

// Append adds msg to the message list if sessionID is still the active
// session. It reports whether the message was added.
func (s *Store) Append(ctx context.Context, sessionID string, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID == "" || sessionID != s.activeID {
		return false
	}
	if msg.Content == nil {
		msg.Content = normalizeFor(msg.Role, msg.Raw)
	}
	s.messages = append(s.messages, msg)
	s.saveMessagesLocked(ctx, sessionID)
	return true
}

// Touch updates a session's summary after an exchange, ahead of the next
// reload.
func (s *Store) Touch(id, lastMessage string, added int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i].LastMessage = lastMessage
			s.sessions[i].MessageCount += added
			s.sessions[i].UpdatedAt = at
			return
		}
	}
}

// Clear forgets all state, e.g. on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	s.reloaded = false
	s.clearActiveLocked()
}

// Sessions returns a copy of the session list in server order.
func (s *Store) Sessions() []ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sessions)
}

// Messages returns a copy of the active session's messages.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// ActiveID returns the active session id, or "" if none.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Loading reports whether the active session's messages are still being
// fetched. Its message list is not usable as history until this is false.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Active resolves the active session in the current list.
func (s *Store) Active() (ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(s.activeID)
}

// Session resolves a session by id in the current list.
func (s *Store) Session(id string) (ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(id)
}

func (s *Store) lookupLocked(id string) (ChatSession, bool) {
	if id == "" {
		return ChatSession{}, false
	}
	for _, cs := range s.sessions {
		if cs.ID == id {
			return cs, true
		}
	}
	return ChatSession{}, false
}

func (s *Store) clearActiveLocked() {
	s.gen++
	s.activeID = ""
	s.messages = nil
	s.loading = false
}

func (s *Store) saveSessions(ctx context.Context, sessions []ChatSession) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveSessions(ctx, sessions); err != nil {
		s.log.Debug("cache sessions failed", zap.Error(err))
	}
}

func (s *Store) saveMessagesLocked(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveMessages(ctx, id, s.messages); err != nil {
		s.log.Debug("cache messages failed", zap.String("session", id), zap.Error(err))
	}
}
