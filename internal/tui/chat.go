package tui

// chat.go renders the active session into the viewport and tracks the
// selectable blocks for copy and feedback.

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Dhanuzh/plcchat/internal/render"
	"github.com/Dhanuzh/plcchat/internal/session"
)

// blockRef locates one rendered assistant block.
type blockRef struct {
	view     render.BlockView
	msgIndex int
	line     int // first line within the viewport content
}

// feedback is the accuracy verdict given to a reply.
type feedback int

const (
	feedbackNone feedback = iota
	feedbackAccurate
	feedbackInaccurate
)

// feedbackKey identifies a reply across reloads, which regenerate message
// ids but keep server timestamps.
func feedbackKey(sessionID string, index int, msg session.Message) string {
	if msg.Timestamp.IsZero() {
		return fmt.Sprintf("%s#%d", sessionID, index)
	}
	return fmt.Sprintf("%s@%d", sessionID, msg.Timestamp.UnixMilli())
}

// questionFor returns the user message that prompted the reply at index.
func questionFor(msgs []session.Message, index int) string {
	for i := index - 1; i >= 0; i-- {
		if msgs[i].Role == session.RoleUser {
			return msgs[i].Text()
		}
	}
	return ""
}

// chatWidth is the usable width inside the viewport, without the block
// gutter.
func (m *Model) chatWidth() int {
	return max(m.viewport.Width-2, 20)
}

// refreshChat rebuilds the viewport content from the store. follow scrolls
// to the bottom.
func (m *Model) refreshChat(follow bool) {
	m.messages = m.deps.Store.Messages()
	m.blocks = m.blocks[:0]
	m.renderer.SetWidth(m.chatWidth())

	t := m.theme
	userLabel := lipgloss.NewStyle().Foreground(t.User).Bold(true)
	assistantLabel := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	userText := lipgloss.NewStyle().Foreground(t.Text)
	dim := lipgloss.NewStyle().Foreground(t.TextDim)
	okStyle := lipgloss.NewStyle().Foreground(t.Success)
	badStyle := lipgloss.NewStyle().Foreground(t.Error)
	gutterOn := lipgloss.NewStyle().Foreground(t.BorderHighlight).Render("▌ ")

	var sb strings.Builder
	lines := func() int { return strings.Count(sb.String(), "\n") }

	activeID := m.deps.Store.ActiveID()
	switch {
	case m.loadingMessages && len(m.messages) == 0:
		sb.WriteString(dim.Render(m.spinner.View() + " Loading messages…"))
	case activeID == "" && len(m.messages) == 0:
		sb.WriteString(m.welcome())
	case len(m.messages) == 0:
		sb.WriteString(dim.Render("Ask about ladder logic, Structured Text or PLC troubleshooting."))
	}

	for i, msg := range m.messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if msg.Role == session.RoleUser {
			sb.WriteString(userLabel.Render("You"))
			sb.WriteString("\n")
			sb.WriteString(userText.Render(wordwrap.String(msg.Text(), m.chatWidth())))
			continue
		}

		sb.WriteString(assistantLabel.Render("Assistant"))
		sb.WriteString("\n")
		views := render.ViewMessage(string(msg.Role), msg.Timestamp, msg.Content)
		for j, v := range views {
			if j > 0 {
				sb.WriteString("\n\n")
			}
			idx := len(m.blocks)
			m.blocks = append(m.blocks, blockRef{view: v, msgIndex: i, line: lines()})

			gutter := "  "
			if m.focus == focusChat && idx == m.selected {
				gutter = gutterOn
			}
			rendered := m.renderer.Block(v, m.copies.Copied(v.Key))
			for k, line := range strings.Split(rendered, "\n") {
				if k > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(gutter + line)
			}
		}

		// Footer line: time and feedback.
		var meta []string
		if !msg.Timestamp.IsZero() {
			meta = append(meta, msg.Timestamp.Local().Format("15:04"))
		}
		switch m.feedback[feedbackKey(activeID, i, msg)] {
		case feedbackAccurate:
			meta = append(meta, okStyle.Render("✓ Saved to Library"))
		case feedbackInaccurate:
			meta = append(meta, badStyle.Render("✗ Marked inaccurate"))
		}
		if len(meta) > 0 {
			sb.WriteString("\n  ")
			sb.WriteString(dim.Render(strings.Join(meta, " · ")))
		}
	}

	if m.selected >= len(m.blocks) {
		m.selected = max(len(m.blocks)-1, 0)
	}

	m.viewport.SetContent(sb.String())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) welcome() string {
	t := m.theme
	title := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("PLC Assistant")
	body := lipgloss.NewStyle().Foreground(t.TextMuted).Render(
		"Start a chat with ctrl+n or just type a question.\n" +
			"Replies with ladder diagrams and PLC code come with a validation verdict.")
	return title + "\n\n" + body
}

// selectBlock moves the block selection by delta and scrolls it into view.
func (m *Model) selectBlock(delta int) {
	if len(m.blocks) == 0 {
		return
	}
	m.selected = min(max(m.selected+delta, 0), len(m.blocks)-1)
	m.refreshChat(false)
	m.scrollToBlock()
}

func (m *Model) scrollToBlock() {
	if m.selected >= len(m.blocks) {
		return
	}
	line := m.blocks[m.selected].line
	if line < m.viewport.YOffset || line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line)
	}
}

// selectedBlock returns the block under the selection.
func (m *Model) selectedBlock() (blockRef, bool) {
	if m.selected < 0 || m.selected >= len(m.blocks) {
		return blockRef{}, false
	}
	return m.blocks[m.selected], true
}

// busyLine is the indicator shown above the input while work is running.
func (m *Model) busyLine() string {
	if !m.sending && !m.creating {
		return ""
	}
	msg := "Thinking…"
	if m.creating {
		msg = "Starting a new chat…"
	}
	if m.sendStarted.IsZero() || m.creating {
		return lipgloss.NewStyle().Foreground(m.theme.TextMuted).Render(m.spinner.View() + " " + msg)
	}
	elapsed := m.now().Sub(m.sendStarted).Round(time.Second)
	return lipgloss.NewStyle().Foreground(m.theme.TextMuted).
		Render(fmt.Sprintf("%s %s %s", m.spinner.View(), msg, elapsed))
}
