package tui

// header.go renders the top bar: app name, active chat title and the
// signed-in user.

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

func truncateANSI(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return truncate.String(s, uint(w))
}

// renderHeader returns the header bar followed by a separator line.
func (m *Model) renderHeader() string {
	if m.width == 0 {
		return ""
	}
	t := m.theme

	appSt := lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	titleSt := lipgloss.NewStyle().Foreground(t.Text)
	userSt := lipgloss.NewStyle().Foreground(t.Background).Background(t.Info).Padding(0, 1)
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)

	left := appSt.Render(" PLC Chat ")
	if s, ok := m.deps.Store.Active(); ok {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		left += dim.Render("│ ") + titleSt.Render(title)
	} else if m.deps.Store.ActiveID() != "" {
		left += dim.Render("│ ") + titleSt.Render("New Chat")
	}

	var right string
	if m.deps.Identity != nil {
		if u := m.deps.Identity.User(); u != nil {
			right = userSt.Render(u.Name())
		}
	}

	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		left = truncateANSI(left, m.width-lipgloss.Width(right)-1)
		pad = max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	}
	line := left + strings.Repeat(" ", pad) + right

	sep := lipgloss.NewStyle().Foreground(t.Border).Render(strings.Repeat("─", m.width))
	return line + "\n" + sep
}
