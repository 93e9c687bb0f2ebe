// Package tui is the terminal chat screen: session sidebar, conversation
// viewport and message input.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Dhanuzh/plcchat/internal/cache"
	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/conversation"
	"github.com/Dhanuzh/plcchat/internal/identity"
	"github.com/Dhanuzh/plcchat/internal/render"
	"github.com/Dhanuzh/plcchat/internal/session"
	"github.com/Dhanuzh/plcchat/internal/theme"
)

// focus is the pane receiving keys.
type focus int

const (
	focusInput focus = iota
	focusChat
	focusSidebar
)

// Library stores accuracy feedback. *cache.UserCache implements it.
type Library interface {
	SaveFeedback(ctx context.Context, e cache.Entry) (int64, error)
}

// Deps are the collaborators of the chat screen. Store and Controller are
// required.
type Deps struct {
	Store      *session.Store
	Controller *conversation.Controller
	Identity   *identity.Context
	Library    Library
	Clipboard  render.Clipboard
	Themes     *theme.Registry
	Timeout    time.Duration
	Logger     *zap.Logger

	// HistoryFile persists sent questions for recall; empty keeps them in
	// memory.
	HistoryFile string
}

// ─── Messages ───────────────────────────────────────────────────────────────

type sessionsRestoredMsg struct{ err error }

type sessionsLoadedMsg struct{ err error }

type messagesLoadedMsg struct {
	id  string
	err error
}

type sessionCreatedMsg struct {
	id  string
	err error
}

type renameDoneMsg struct{ err error }

type deleteDoneMsg struct {
	id  string
	err error
}

type sendDoneMsg struct {
	text string
	res  conversation.Result
	err  error
}

type titleMsg conversation.TitleEvent

type feedbackSavedMsg struct {
	key      string
	accurate bool
	err      error
}

type copyExpiredMsg struct{}

// SignedOutMsg tells the screen the user signed out; it clears and quits.
type SignedOutMsg struct{}

// SendStateMsg carries a controller state transition into the screen.
type SendStateMsg conversation.State

// ─── Model ──────────────────────────────────────────────────────────────────

type sidebarState struct {
	cursor        int
	filter        textinput.Model
	filtering     bool
	rename        textinput.Model
	renaming      string // session id being renamed
	confirmDelete string // session id awaiting confirmation
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	deps Deps
	log  *zap.Logger
	now  func() time.Time

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	history  *PromptHistory

	theme    *theme.Theme
	renderer *render.Renderer
	copies   *render.CopyTracker

	width, height int
	focus         focus
	showSidebar   bool
	sidebar       sidebarState

	messages []session.Message
	blocks   []blockRef
	selected int
	feedback map[string]feedback

	loadingSessions bool
	loadingMessages bool
	creating        bool
	sending         bool
	sendStarted     time.Time
	pendingSend     string

	toasts   []Toast
	quitting bool
}

// New creates the chat screen.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Themes == nil {
		deps.Themes = theme.NewRegistry()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = render.SystemClipboard{}
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 30 * time.Second
	}
	t := deps.Themes.Current()

	ta := textarea.New()
	ta.Placeholder = "Ask about ladder logic or PLC code… (enter to send, alt+enter for newline)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 8000
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter chats"
	filter.CharLimit = 64

	rename := textinput.New()
	rename.Prompt = ""
	rename.CharLimit = 100

	m := Model{
		deps:            deps,
		log:             deps.Logger,
		now:             time.Now,
		keys:            DefaultKeyMap(),
		help:            help.New(),
		viewport:        viewport.New(80, 20),
		textarea:        ta,
		spinner:         sp,
		history:         NewPromptHistory(deps.HistoryFile, deps.Logger),
		copies:          render.NewCopyTracker(deps.Clipboard, deps.Logger),
		showSidebar:     true,
		sidebar:         sidebarState{filter: filter, rename: rename},
		feedback:        make(map[string]feedback),
		loadingSessions: true,
	}
	m.applyTheme(t)
	return m
}

func (m *Model) applyTheme(t *theme.Theme) {
	m.theme = t
	m.renderer = render.NewRenderer(t, m.chatWidth())
	m.spinner.Style = lipgloss.NewStyle().Foreground(t.Primary)
	m.textarea.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(t.Surface)
	m.textarea.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(t.TextDim)
	m.textarea.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(t.TextDim)
	m.help.Styles.ShortKey = lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	m.help.Styles.FullKey = m.help.Styles.ShortKey
	m.help.Styles.ShortDesc = lipgloss.NewStyle().Foreground(t.TextMuted)
	m.help.Styles.FullDesc = m.help.Styles.ShortDesc
	m.help.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(t.TextDim)
	m.help.Styles.FullSeparator = m.help.Styles.ShortSeparator
}

// Init paints the cached list, then reloads from the service.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		tea.Sequence(m.restoreCmd(), m.reloadCmd()),
		waitTitle(m.deps.Controller.TitleEvents()),
	)
}

// ─── Commands ───────────────────────────────────────────────────────────────

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func (m *Model) restoreCmd() tea.Cmd {
	store := m.deps.Store
	timeout := m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return sessionsRestoredMsg{err: store.Restore(ctx)}
	}
}

func (m *Model) reloadCmd() tea.Cmd {
	store := m.deps.Store
	timeout := m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return sessionsLoadedMsg{err: store.Reload(ctx)}
	}
}

func (m *Model) selectCmd(id string) tea.Cmd {
	store := m.deps.Store
	timeout := m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return messagesLoadedMsg{id: id, err: store.Select(ctx, id)}
	}
}

func (m *Model) createCmd() tea.Cmd {
	store := m.deps.Store
	timeout := m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		id, err := store.Create(ctx)
		return sessionCreatedMsg{id: id, err: err}
	}
}

func (m *Model) renameCmd(id, title string) tea.Cmd {
	store := m.deps.Store
	timeout := m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return renameDoneMsg{err: store.Rename(ctx, id, title)}
	}
}

func (m *Model) deleteCmd(id string) tea.Cmd {
	store := m.deps.Store
	timeout := m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return deleteDoneMsg{id: id, err: store.Delete(ctx, id)}
	}
}

func (m *Model) sendCmd(text string) tea.Cmd {
	ctrl := m.deps.Controller
	timeout := m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		res, err := ctrl.Send(ctx, text)
		return sendDoneMsg{text: text, res: res, err: err}
	}
}

func (m *Model) feedbackCmd(fbKey string, e cache.Entry) tea.Cmd {
	lib := m.deps.Library
	timeout := m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		_, err := lib.SaveFeedback(ctx, e)
		return feedbackSavedMsg{key: fbKey, accurate: e.Accurate, err: err}
	}
}

func waitTitle(ch <-chan conversation.TitleEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return titleMsg(ev)
	}
}

func copyExpireCmd() tea.Cmd {
	return tea.Tick(render.AckWindow+50*time.Millisecond, func(time.Time) tea.Msg {
		return copyExpiredMsg{}
	})
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = msg.Width >= minWidthSidebar
		m.layout()
		m.refreshChat(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// The optimistic user message lands in the store while the send runs.
		if m.sending && len(m.deps.Store.Messages()) != len(m.messages) {
			m.refreshChat(true)
		} else if m.loadingMessages && len(m.messages) == 0 {
			m.refreshChat(false)
		}
		return m, cmd

	case sessionsRestoredMsg:
		if msg.err != nil {
			m.log.Debug("restore sessions from cache failed", zap.Error(msg.err))
		}
		m.sidebarOnActive()
		return m, nil

	case sessionsLoadedMsg:
		m.loadingSessions = false
		if m.loadingMessages && m.deps.Store.ActiveID() == "" {
			m.loadingMessages = false
		}
		if msg.err != nil {
			cmds = append(cmds, m.showToast("Could not load chats", ToastError))
		}
		m.sidebarOnActive()
		m.refreshChat(true)
		return m, tea.Batch(cmds...)

	case messagesLoadedMsg:
		if msg.id != m.deps.Store.ActiveID() {
			// Superseded by a later selection, or the session went away.
			m.loadingMessages = m.deps.Store.Loading()
			return m, nil
		}
		m.loadingMessages = false
		if msg.err != nil {
			cmds = append(cmds, m.showToast("Could not load messages", ToastError))
		}
		m.selected = 0
		m.refreshChat(true)
		return m, tea.Batch(cmds...)

	case sessionCreatedMsg:
		m.creating = false
		m.loadingSessions = false
		if msg.err != nil && msg.id == "" {
			m.pendingSend = ""
			return m, m.showToast("Could not start a new chat", ToastError)
		}
		m.copies.Reset()
		m.sidebar.filter.SetValue("")
		m.sidebarOnActive()
		m.refreshChat(true)
		if text := m.pendingSend; text != "" {
			m.pendingSend = ""
			return m, m.startSend(text)
		}
		return m, nil

	case renameDoneMsg:
		if msg.err != nil {
			cmds = append(cmds, m.showToast("Rename failed", ToastError))
		}
		m.clampSidebarCursor()
		return m, tea.Batch(cmds...)

	case deleteDoneMsg:
		if _, still := m.deps.Store.Session(msg.id); msg.err != nil && still {
			cmds = append(cmds, m.showToast("Delete failed", ToastError))
		} else {
			cmds = append(cmds, m.showToast("Chat deleted", ToastInfo))
		}
		m.clampSidebarCursor()
		m.refreshChat(true)
		return m, tea.Batch(cmds...)

	case sendDoneMsg:
		m.sending = false
		m.sendStarted = time.Time{}
		switch {
		case errors.Is(msg.err, conversation.ErrLoading):
			m.restoreDraft(msg.text)
			cmds = append(cmds, m.showToast("Messages are still loading", ToastWarning))
		case errors.Is(msg.err, conversation.ErrBusy):
			m.restoreDraft(msg.text)
			cmds = append(cmds, m.showToast("Still waiting for the last reply", ToastWarning))
		case errors.Is(msg.err, session.ErrNoActiveSession):
			cmds = append(cmds, m.showToast("Select or start a chat first", ToastWarning))
		case msg.err != nil:
			m.log.Debug("send rejected", zap.Error(msg.err))
		case msg.res.Failed():
			cmds = append(cmds, m.showToast("The assistant could not answer", ToastError))
		}
		m.refreshChat(true)
		return m, tea.Batch(cmds...)

	case SendStateMsg:
		sending := conversation.State(msg) == conversation.StateSending
		if sending != m.sending {
			m.sending = sending
			m.layout()
		}
		return m, nil

	case titleMsg:
		if msg.Err == nil {
			m.sidebarOnActive()
		}
		return m, waitTitle(m.deps.Controller.TitleEvents())

	case feedbackSavedMsg:
		if msg.err != nil {
			delete(m.feedback, msg.key)
			m.refreshChat(false)
			return m, m.showToast("Could not save feedback", ToastError)
		}
		if msg.accurate {
			return m, m.showToast("Saved to Library", ToastSuccess)
		}
		return m, m.showToast("Thanks, feedback recorded", ToastInfo)

	case copyExpiredMsg:
		m.copies.Prune()
		m.refreshChat(false)
		return m, nil

	case toastDismissMsg:
		m.pruneToasts()
		return m, nil

	case SignedOutMsg:
		m.deps.Store.Clear()
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// layout sizes the panes for the current window.
func (m *Model) layout() {
	chatW := m.width
	if m.showSidebar {
		chatW -= sidebarWidth
	}
	chatW = max(chatW, 20)

	m.textarea.SetWidth(chatW - 2)
	m.viewport.Width = chatW - 1 // one column for the scrollbar
	m.viewport.Height = max(m.height-m.chromeHeight(), 3)
	m.renderer.SetWidth(m.chatWidth())
}

// chromeHeight counts the rows around the viewport: header (2), input
// separator (1), textarea, busy line and footer.
func (m *Model) chromeHeight() int {
	h := 2 + 1 + m.textarea.Height()
	if m.sending || m.creating {
		h++
	}
	h += lipgloss.Height(m.renderFooter())
	return h
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.sidebar.filtering = false
	m.sidebar.filter.Blur()
	if f == focusInput {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
	if f == focusSidebar && !m.showSidebar {
		m.showSidebar = true
		m.layout()
	}
	if f == focusChat && m.selected >= len(m.blocks) {
		m.selected = 0
	}
	m.refreshChat(false)
}

func (m *Model) cycleFocus(delta int) {
	order := []focus{focusInput, focusChat, focusSidebar}
	i := 0
	for j, f := range order {
		if f == m.focus {
			i = j
		}
	}
	m.setFocus(order[(i+delta+len(order))%len(order)])
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Text entry in the sidebar swallows everything.
	if m.focus == focusSidebar && (m.sidebar.renaming != "" || m.sidebar.filtering) {
		return m.updateSidebarInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextFocus):
		m.cycleFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevFocus):
		m.cycleFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChat()
	case key.Matches(msg, m.keys.Reload):
		m.loadingSessions = true
		return m, m.reloadCmd()
	case key.Matches(msg, m.keys.Sidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar && m.focus == focusSidebar {
			m.setFocus(focusInput)
		}
		m.layout()
		m.refreshChat(false)
		return m, nil
	case key.Matches(msg, m.keys.Theme):
		return m, m.nextTheme()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	}

	switch m.focus {
	case focusChat:
		return m.updateChatPane(msg)
	case focusSidebar:
		return m.updateSidebar(msg)
	}
	return m.updateInput(msg)
}

func (m *Model) newChat() tea.Cmd {
	if m.creating {
		return nil
	}
	m.creating = true
	m.layout()
	return m.createCmd()
}

func (m *Model) nextTheme() tea.Cmd {
	names := m.deps.Themes.List()
	next := names[0]
	for i, n := range names {
		if n == m.theme.Name {
			next = names[(i+1)%len(names)]
		}
	}
	if err := m.deps.Themes.SetCurrent(next); err != nil {
		return m.showToast(err.Error(), ToastError)
	}
	m.applyTheme(m.deps.Themes.Current())
	m.layout()
	m.refreshChat(false)
	return m.showToast("Theme: "+next, ToastInfo)
}

// startSend clears the input and sends text in the background.
func (m *Model) startSend(text string) tea.Cmd {
	m.sending = true
	m.sendStarted = m.now()
	m.textarea.Reset()
	m.layout()
	return m.sendCmd(text)
}

// restoreDraft puts a rejected question back unless something new was typed.
func (m *Model) restoreDraft(text string) {
	if text != "" && m.textarea.Value() == "" {
		m.textarea.SetValue(text)
	}
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Send) {
		text := strings.TrimSpace(m.textarea.Value())
		if text == "" || m.sending || m.creating {
			return m, nil
		}
		if m.loadingSessions || m.loadingMessages {
			return m, m.showToast("Messages are still loading", ToastWarning)
		}
		m.history.Append(text)
		if m.deps.Store.ActiveID() == "" {
			m.pendingSend = text
			m.textarea.Reset()
			return m, m.newChat()
		}
		return m, m.startSend(text)
	}

	switch msg.Type {
	case tea.KeyUp:
		if m.textarea.Line() == 0 {
			if text, ok := m.history.Older(m.textarea.Value()); ok {
				m.textarea.SetValue(text)
				return m, nil
			}
		}
	case tea.KeyDown:
		if m.history.Browsing() && m.textarea.Line() == m.textarea.LineCount()-1 {
			if text, ok := m.history.Newer(); ok {
				m.textarea.SetValue(text)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) updateChatPane(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectBlock(-1)
	case key.Matches(msg, m.keys.Down):
		m.selectBlock(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
		m.refreshChat(false)
		m.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.selected = max(len(m.blocks)-1, 0)
		m.refreshChat(true)
	case key.Matches(msg, m.keys.Copy):
		return m, m.copySelected()
	case key.Matches(msg, m.keys.Accurate):
		return m, m.markSelected(true)
	case key.Matches(msg, m.keys.Inaccurate):
		return m, m.markSelected(false)
	case key.Matches(msg, m.keys.Cancel):
		m.setFocus(focusInput)
	}
	return m, nil
}

func (m *Model) copySelected() tea.Cmd {
	ref, ok := m.selectedBlock()
	if !ok {
		return nil
	}
	if !m.copies.Copy(ref.view.Key, ref.view.CopyText()) {
		return m.showToast("Copy failed", ToastError)
	}
	m.refreshChat(false)
	return copyExpireCmd()
}

// markSelected records accuracy feedback for the reply owning the selected
// block. Accurate replies are saved to the library with their question.
func (m *Model) markSelected(accurate bool) tea.Cmd {
	ref, ok := m.selectedBlock()
	if !ok || ref.msgIndex >= len(m.messages) {
		return nil
	}
	msg := m.messages[ref.msgIndex]
	if msg.Role != session.RoleAssistant {
		return nil
	}
	if t, ok := msg.Raw.(content.Text); ok && string(t) == conversation.ApologyText {
		return nil
	}
	activeID := m.deps.Store.ActiveID()
	fbKey := feedbackKey(activeID, ref.msgIndex, msg)
	if m.feedback[fbKey] != feedbackNone {
		return m.showToast("Feedback already given", ToastInfo)
	}
	if accurate {
		m.feedback[fbKey] = feedbackAccurate
	} else {
		m.feedback[fbKey] = feedbackInaccurate
	}
	m.refreshChat(false)

	if m.deps.Library == nil {
		return nil
	}
	return m.feedbackCmd(fbKey, cache.Entry{
		SessionID: activeID,
		Question:  questionFor(m.messages, ref.msgIndex),
		Reply:     msg.Raw,
		Accurate:  accurate,
	})
}

func (m Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.visibleSessions()

	if id := m.sidebar.confirmDelete; id != "" {
		m.sidebar.confirmDelete = ""
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.deleteCmd(id)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.cursor--
		m.clampSidebarCursor()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.cursor++
		m.clampSidebarCursor()
	case key.Matches(msg, m.keys.Open):
		if m.sidebar.cursor < len(sessions) {
			id := sessions[m.sidebar.cursor].ID
			m.setFocus(focusInput)
			if id == m.deps.Store.ActiveID() {
				return m, nil
			}
			m.loadingMessages = true
			m.copies.Reset()
			m.selected = 0
			return m, m.selectCmd(id)
		}
	case key.Matches(msg, m.keys.Rename):
		if m.sidebar.cursor < len(sessions) {
			s := sessions[m.sidebar.cursor]
			m.sidebar.renaming = s.ID
			m.sidebar.rename.SetValue(s.Title)
			m.sidebar.rename.CursorEnd()
			return m, m.sidebar.rename.Focus()
		}
	case key.Matches(msg, m.keys.Delete):
		if m.sidebar.cursor < len(sessions) {
			m.sidebar.confirmDelete = sessions[m.sidebar.cursor].ID
		}
	case key.Matches(msg, m.keys.Filter):
		m.sidebar.filtering = true
		return m, m.sidebar.filter.Focus()
	case key.Matches(msg, m.keys.Cancel):
		if m.sidebar.filter.Value() != "" {
			m.sidebar.filter.SetValue("")
			m.sidebarOnActive()
		} else {
			m.setFocus(focusInput)
		}
	}
	return m, nil
}

// updateSidebarInput feeds keys to the rename or filter input.
func (m Model) updateSidebarInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if id := m.sidebar.renaming; id != "" {
		switch msg.Type {
		case tea.KeyEnter:
			title := strings.TrimSpace(m.sidebar.rename.Value())
			m.sidebar.renaming = ""
			m.sidebar.rename.Blur()
			if title == "" {
				return m, nil
			}
			return m, m.renameCmd(id, title)
		case tea.KeyEsc:
			m.sidebar.renaming = ""
			m.sidebar.rename.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.sidebar.rename, cmd = m.sidebar.rename.Update(msg)
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyEnter:
		m.sidebar.filtering = false
		m.sidebar.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.sidebar.filtering = false
		m.sidebar.filter.Blur()
		m.sidebar.filter.SetValue("")
		m.sidebarOnActive()
		return m, nil
	}
	var cmd tea.Cmd
	m.sidebar.filter, cmd = m.sidebar.filter.Update(msg)
	m.sidebar.cursor = 0
	return m, cmd
}

// ─── View ───────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading…"
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyH := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	var chat strings.Builder
	chat.WriteString(m.renderViewportWithScrollbar())
	chat.WriteString("\n")
	if busy := m.busyLine(); busy != "" {
		chat.WriteString(busy)
		chat.WriteString("\n")
	}
	inputSep := m.theme.Border
	if m.focus == focusInput {
		inputSep = m.theme.BorderHighlight
	}
	chat.WriteString(lipgloss.NewStyle().Foreground(inputSep).Render(strings.Repeat("─", m.viewport.Width+1)))
	chat.WriteString("\n")
	chat.WriteString(m.textarea.View())

	body := chat.String()
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(bodyH), body)
	}

	screen := header + "\n" + body + "\n" + footer
	return m.injectToasts(screen)
}
