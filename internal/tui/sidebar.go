package tui

// sidebar.go renders the session list on the left: title, preview, message
// count and relative date per chat, with fuzzy filter, inline rename and
// delete confirmation.

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"

	"github.com/Dhanuzh/plcchat/internal/session"
)

const (
	sidebarWidth    = 34
	minWidthSidebar = 80 // below this the sidebar starts hidden
)

// sessionSource adapts a session list for fuzzy matching on titles and
// previews.
type sessionSource []session.ChatSession

func (s sessionSource) String(i int) string { return s[i].Title + " " + s[i].LastMessage }
func (s sessionSource) Len() int            { return len(s) }

// filterSessions returns the sessions matching pattern, best match first.
// An empty pattern keeps the server order.
func filterSessions(sessions []session.ChatSession, pattern string) []session.ChatSession {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return sessions
	}
	matches := fuzzy.FindFrom(pattern, sessionSource(sessions))
	out := make([]session.ChatSession, len(matches))
	for i, m := range matches {
		out[i] = sessions[m.Index]
	}
	return out
}

// relativeDate formats t the way the session list shows it: a clock time
// today, a weekday within the week, else month and day.
func relativeDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < 24*time.Hour:
		return t.Local().Format("15:04")
	case d < 7*24*time.Hour:
		return t.Local().Format("Mon")
	default:
		return t.Local().Format("Jan 2")
	}
}

func truncateTo(s string, w int) string {
	if w <= 1 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	return truncate.StringWithTail(s, uint(w), "…")
}

// visibleSessions is the sidebar list after filtering.
func (m *Model) visibleSessions() []session.ChatSession {
	return filterSessions(m.deps.Store.Sessions(), m.sidebar.filter.Value())
}

func (m *Model) clampSidebarCursor() {
	n := len(m.visibleSessions())
	if m.sidebar.cursor >= n {
		m.sidebar.cursor = n - 1
	}
	if m.sidebar.cursor < 0 {
		m.sidebar.cursor = 0
	}
}

// sidebarOnActive moves the cursor to the active session, if visible.
func (m *Model) sidebarOnActive() {
	active := m.deps.Store.ActiveID()
	for i, s := range m.visibleSessions() {
		if s.ID == active {
			m.sidebar.cursor = i
			return
		}
	}
	m.clampSidebarCursor()
}

// renderSidebar returns the sidebar at sidebarWidth columns and height rows.
func (m *Model) renderSidebar(height int) string {
	t := m.theme
	content := lipgloss.NewStyle().
		Width(sidebarWidth-1).
		Height(height).
		MaxHeight(height).
		PaddingLeft(1).
		PaddingRight(1).
		Render(m.renderSidebarContent(height))

	borderLine := lipgloss.NewStyle().
		Foreground(t.Border).
		Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, content, borderLine)
}

func (m *Model) renderSidebarContent(height int) string {
	t := m.theme
	w := sidebarWidth - 3
	head := lipgloss.NewStyle().Foreground(t.TextMuted).Bold(true)
	dim := lipgloss.NewStyle().Foreground(t.TextDim)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	title := lipgloss.NewStyle().Foreground(t.Text)
	selected := lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	warn := lipgloss.NewStyle().Foreground(t.Warning)

	var sb strings.Builder
	sb.WriteString(head.Render("Chats"))
	if m.focus == focusSidebar {
		sb.WriteString(dim.Render(" ●"))
	}
	sb.WriteString("\n")

	if m.sidebar.filtering || m.sidebar.filter.Value() != "" {
		sb.WriteString(m.sidebar.filter.View())
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sessions := m.visibleSessions()
	switch {
	case m.loadingSessions && len(sessions) == 0:
		sb.WriteString(muted.Render(m.spinner.View() + " Loading chats…"))
		return sb.String()
	case len(sessions) == 0 && m.sidebar.filter.Value() != "":
		sb.WriteString(dim.Render("No matches"))
		return sb.String()
	case len(sessions) == 0:
		sb.WriteString(dim.Render("No chats yet"))
		sb.WriteString("\n")
		sb.WriteString(dim.Render("Press ctrl+n to start one"))
		return sb.String()
	}

	active := m.deps.Store.ActiveID()
	now := m.now()
	// Each entry takes three lines plus a blank separator.
	perPage := max((height-4)/4, 1)
	start := 0
	if m.sidebar.cursor >= perPage {
		start = m.sidebar.cursor - perPage + 1
	}

	for i := start; i < len(sessions) && i < start+perPage; i++ {
		s := sessions[i]
		marker := "  "
		nameStyle := title
		if s.ID == active {
			marker = "● "
			nameStyle = selected
		}
		if m.focus == focusSidebar && i == m.sidebar.cursor {
			marker = "▸ "
			nameStyle = selected
		}

		// Line 1: title, or the rename input.
		if m.sidebar.renaming == s.ID {
			sb.WriteString(marker + m.sidebar.rename.View())
		} else {
			name := s.Title
			if name == "" {
				name = "Untitled"
			}
			sb.WriteString(nameStyle.Render(marker + truncateTo(name, w-2)))
		}
		sb.WriteString("\n")

		// Line 2: preview.
		preview := s.LastMessage
		if preview == "" {
			preview = "No messages"
		}
		sb.WriteString("  " + dim.Render(truncateTo(preview, w-2)))
		sb.WriteString("\n")

		// Line 3: count and date, or the delete prompt.
		if m.sidebar.confirmDelete == s.ID {
			sb.WriteString("  " + warn.Render("Delete? y/n"))
		} else {
			meta := fmt.Sprintf("%d msg%s", s.MessageCount, pluralS(s.MessageCount))
			if d := relativeDate(s.UpdatedAt, now); d != "" {
				meta += " · " + d
			}
			sb.WriteString("  " + muted.Render(meta))
		}
		sb.WriteString("\n\n")
	}

	if n := len(sessions); n > perPage {
		sb.WriteString(dim.Render(fmt.Sprintf("%d/%d", m.sidebar.cursor+1, n)))
	}
	return sb.String()
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
