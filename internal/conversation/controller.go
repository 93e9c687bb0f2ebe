// Package conversation orchestrates sending a message: the optimistic user
// message, the service call with history, the reply or apology, and the
// first-exchange title.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/session"
)

// ApologyText replaces the reply when the service call fails.
const ApologyText = "Sorry, I encountered an error while processing your request. Please try again."

const titleTimeout = 30 * time.Second

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrBusy         = errors.New("a message is already being sent")
	ErrLoading      = errors.New("messages are still loading")
)

// Result describes a completed send.
type Result struct {
	SessionID string
	Question  session.Message
	Reply     session.Message
	// Err is the service error when Reply is the apology.
	Err error
	// Appended is false when the active session changed before the reply
	// arrived; the reply was then dropped locally.
	Appended bool
}

// Failed reports whether the reply is the synthesized apology.
func (r Result) Failed() bool { return r.Err != nil }

// TitleEvent reports the outcome of a first-exchange title.
type TitleEvent struct {
	SessionID string
	Title     string
	Err       error
}

// Controller sends messages for the store's active session. One send may be
// in flight at a time.
type Controller struct {
	store  *session.Store
	svc    session.Service
	titler Titler
	log    *zap.Logger
	now    func() time.Time

	sm     stateMachine
	events chan TitleEvent
	wg     sync.WaitGroup
}

// New creates a controller. A nil titler truncates; a nil logger discards.
func New(store *session.Store, svc session.Service, titler Titler, log *zap.Logger) *Controller {
	if titler == nil {
		titler = TruncateTitler{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		store:  store,
		svc:    svc,
		titler: titler,
		log:    log,
		now:    time.Now,
		events: make(chan TitleEvent, 8),
	}
}

// State returns the current send state.
func (c *Controller) State() State { return c.sm.get() }

// OnStateChange registers a callback run on every state transition.
func (c *Controller) OnStateChange(fn func(State)) {
	c.sm.mu.Lock()
	c.sm.onChange = fn
	c.sm.mu.Unlock()
}

// TitleEvents delivers title outcomes. Events are dropped when nobody reads.
func (c *Controller) TitleEvents() <-chan TitleEvent { return c.events }

// Wait blocks until background title generation has finished.
func (c *Controller) Wait() { c.wg.Wait() }

// Send posts text to the active session. Blank text, a missing active
// session, a session whose messages are still loading and a send already in
// flight are rejected without any state change. A service failure is not
// returned: it becomes an apology reply.
func (c *Controller) Send(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}
	sessionID := c.store.ActiveID()
	if sessionID == "" {
		return Result{}, session.ErrNoActiveSession
	}
	// Until the fetch settles the message list is not the session's history.
	if c.store.Loading() {
		return Result{}, ErrLoading
	}
	if !c.sm.begin() {
		return Result{}, ErrBusy
	}
	defer c.sm.end()

	prior := c.store.Messages()
	res := Result{
		SessionID: sessionID,
		Question:  session.NewMessage(session.RoleUser, content.Text(text), c.now()),
	}
	c.store.Append(ctx, sessionID, res.Question)

	raw, err := c.svc.SendMessage(ctx, sessionID, text, prior)
	if err != nil {
		c.log.Warn("send message failed", zap.String("session", sessionID), zap.Error(err))
		res.Err = err
		res.Reply = session.NewMessage(session.RoleAssistant, content.Text(ApologyText), c.now())
	} else {
		res.Reply = session.NewMessage(session.RoleAssistant, raw, c.now())
	}

	res.Appended = c.store.Append(ctx, sessionID, res.Reply)
	if !res.Appended {
		c.log.Info("reply arrived after session switch", zap.String("session", sessionID))
	}
	if res.Err == nil {
		c.store.Touch(sessionID, res.Reply.Text(), 2, res.Reply.Timestamp)
	}

	if len(prior) == 0 {
		c.generateTitle(ctx, sessionID, text)
	}
	return res, nil
}

// generateTitle names a session after its first message. It runs in the
// background and only logs failures.
func (c *Controller) generateTitle(ctx context.Context, sessionID, text string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), titleTimeout)
		defer cancel()

		ev := TitleEvent{SessionID: sessionID}
		title, err := c.titler.Title(ctx, text)
		if err == nil && strings.TrimSpace(title) == "" {
			err = errors.New("empty title")
		}
		if err == nil {
			ev.Title = title
			err = c.store.Rename(ctx, sessionID, title)
		}
		if err != nil {
			c.log.Warn("generate title failed", zap.String("session", sessionID), zap.Error(err))
			ev.Err = err
		}
		select {
		case c.events <- ev:
		default:
		}
	}()
}
