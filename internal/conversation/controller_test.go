package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/session"
	"github.com/Dhanuzh/plcchat/internal/session/sessiontest"
)

func setup(t *testing.T, selected bool) (*Controller, *session.Store, *sessiontest.Fake) {
	t.Helper()
	fake := sessiontest.New(
		session.ChatSession{ID: "s1", Title: "New Chat"},
		session.ChatSession{ID: "s2", Title: "Other"},
	)
	fake.Reply = content.Text("```json\n[{\"type\":\"plc-code\",\"content\":\"Motor := Start AND NOT Stop;\"}]\n```")
	store := session.NewStore(fake, nil, nil)
	if selected {
		require.NoError(t, store.Select(context.Background(), "s1"))
	}
	return New(store, fake, nil, nil), store, fake
}

func TestSendBlankIsNoop(t *testing.T) {
	c, store, fake := setup(t, true)

	_, err := c.Send(context.Background(), "  \n\t ")

	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, store.Messages())
	assert.Zero(t, fake.Count("send:"))
}

func TestSendWithoutSessionIsNoop(t *testing.T) {
	c, store, fake := setup(t, false)

	_, err := c.Send(context.Background(), "hello")

	assert.ErrorIs(t, err, session.ErrNoActiveSession)
	assert.Empty(t, store.Messages())
	assert.Zero(t, fake.Count("send:"))
	assert.Equal(t, StateIdle, c.State())
}

func TestSendAppendsQuestionAndNormalizedReply(t *testing.T) {
	c, store, fake := setup(t, true)

	res, err := c.Send(context.Background(), "  start/stop circuit  ")
	require.NoError(t, err)
	c.Wait()

	assert.False(t, res.Failed())
	assert.True(t, res.Appended)
	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, "start/stop circuit", msgs[0].Text())
	assert.False(t, msgs[0].Timestamp.IsZero())
	assert.Equal(t, session.RoleAssistant, msgs[1].Role)
	blocks, ok := msgs[1].Content.(content.StructuredBlocks)
	require.True(t, ok)
	assert.Equal(t, content.TypePLCCode, blocks.Blocks[0].Type)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, fake.Count("send:s1"))
}

func TestSendPassesPriorHistory(t *testing.T) {
	c, _, fake := setup(t, true)
	ctx := context.Background()

	_, err := c.Send(ctx, "first")
	require.NoError(t, err)
	_, err = c.Send(ctx, "second")
	require.NoError(t, err)
	c.Wait()

	histories := fake.Histories()
	require.Len(t, histories, 2)
	assert.Empty(t, histories[0])
	require.Len(t, histories[1], 2)
	assert.Equal(t, "first", histories[1][0].Text())
}

func TestSendFailureAppendsApology(t *testing.T) {
	c, store, fake := setup(t, true)
	fake.SendErr = errors.New("503 service unavailable")

	res, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	c.Wait()

	assert.True(t, res.Failed())
	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleAssistant, msgs[1].Role)
	assert.Equal(t, content.PlainText{Text: ApologyText}, msgs[1].Content)
	assert.Equal(t, StateIdle, c.State())
}

func TestSendWhileSendingIsNoop(t *testing.T) {
	c, store, fake := setup(t, true)
	entered := make(chan struct{})
	release := make(chan struct{})
	fake.BeforeSend = func(string) {
		close(entered)
		<-release
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Send(context.Background(), "first")
	}()
	<-entered

	assert.Equal(t, StateSending, c.State())
	_, err := c.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, store.Messages(), 1)

	close(release)
	wg.Wait()
	c.Wait()
	assert.Len(t, store.Messages(), 2)
	assert.Equal(t, 1, fake.Count("send:"))
}

func TestSendWhileMessagesLoadIsRejected(t *testing.T) {
	fake := sessiontest.New(session.ChatSession{ID: "s1", Title: "Motor interlock"})
	fake.SetMessages("s1",
		session.NewMessage(session.RoleUser, content.Text("draw a motor interlock"), time.Unix(10, 0)),
		session.NewMessage(session.RoleAssistant, content.Text("Here it is."), time.Unix(11, 0)),
	)
	store := session.NewStore(fake, nil, nil)
	c := New(store, fake, nil, nil)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	fake.BeforeGet = func(string) {
		close(entered)
		<-release
	}
	selected := make(chan error, 1)
	go func() { selected <- store.Reload(ctx) }()
	<-entered

	_, err := c.Send(ctx, "hello there")
	assert.ErrorIs(t, err, ErrLoading)
	assert.Equal(t, StateIdle, c.State())

	close(release)
	require.NoError(t, <-selected)
	c.Wait()

	assert.Zero(t, fake.Count("send:"))
	assert.Zero(t, fake.Count("rename:"))
	assert.Equal(t, "Motor interlock", fake.Title("s1"))
	assert.Len(t, store.Messages(), 2)

	// Once loaded, the stored exchange is the history and no title is made.
	_, err = c.Send(ctx, "hello there")
	require.NoError(t, err)
	c.Wait()
	histories := fake.Histories()
	require.Len(t, histories, 1)
	assert.Len(t, histories[0], 2)
	assert.Zero(t, fake.Count("rename:"))
	assert.Len(t, store.Messages(), 4)
}

func TestReplyAfterSessionSwitchIsDropped(t *testing.T) {
	c, store, fake := setup(t, true)
	entered := make(chan struct{})
	release := make(chan struct{})
	fake.BeforeSend = func(string) {
		close(entered)
		<-release
	}

	done := make(chan Result, 1)
	go func() {
		res, _ := c.Send(context.Background(), "hello")
		done <- res
	}()
	<-entered
	require.NoError(t, store.Select(context.Background(), "s2"))
	close(release)
	res := <-done
	c.Wait()

	assert.False(t, res.Appended)
	assert.Equal(t, "s2", store.ActiveID())
	assert.Empty(t, store.Messages())
}

func TestFirstExchangeSetsTitle(t *testing.T) {
	c, store, fake := setup(t, true)
	require.NoError(t, store.Reload(context.Background()))

	_, err := c.Send(context.Background(), "Design a conveyor interlock\nwith two sensors")
	require.NoError(t, err)
	c.Wait()

	assert.Equal(t, "Design a conveyor interlock", fake.Title("s1"))
	ev := <-c.TitleEvents()
	assert.Equal(t, "s1", ev.SessionID)
	assert.NoError(t, ev.Err)

	_, err = c.Send(context.Background(), "and a stop button")
	require.NoError(t, err)
	c.Wait()
	assert.Equal(t, 1, fake.Count("rename:"))
}

type failingTitler struct{}

func (failingTitler) Title(context.Context, string) (string, error) {
	return "", errors.New("title service down")
}

func TestTitleFailureIsNotSurfaced(t *testing.T) {
	_, store, fake := setup(t, true)
	c := New(store, fake, failingTitler{}, nil)

	res, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	c.Wait()

	assert.False(t, res.Failed())
	assert.Equal(t, "New Chat", fake.Title("s1"))
	assert.Zero(t, fake.Count("rename:"))
	ev := <-c.TitleEvents()
	assert.Error(t, ev.Err)
}

func TestStateChangeCallback(t *testing.T) {
	c, _, _ := setup(t, true)
	var mu sync.Mutex
	var seen []State
	c.OnStateChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	_, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateSending, StateIdle}, seen)
}

func TestSendTouchesSessionSummary(t *testing.T) {
	_, store, fake := setup(t, true)
	require.NoError(t, store.Reload(context.Background()))
	// No title, so no reload replaces the local summary.
	c := New(store, fake, failingTitler{}, nil)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	_, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	c.Wait()

	cs, ok := store.Session("s1")
	require.True(t, ok)
	assert.Equal(t, 2, cs.MessageCount)
	assert.Equal(t, "Motor := Start AND NOT Stop;", cs.LastMessage)
	assert.True(t, cs.UpdatedAt.Equal(fixed))
}
