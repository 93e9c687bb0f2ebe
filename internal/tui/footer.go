package tui

// footer.go renders the bottom bar: key hints for the focused pane and the
// scroll position.

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderFooter returns the separator and the help line(s).
func (m *Model) renderFooter() string {
	t := m.theme
	sep := lipgloss.NewStyle().Foreground(t.Border).Render(strings.Repeat("─", max(m.width, 1)))

	m.help.Width = m.width
	hints := m.help.View(bindings{k: m.keys, focus: m.focus})

	if ind := m.scrollIndicator(); ind != "" && !m.help.ShowAll {
		pad := m.width - lipgloss.Width(hints) - lipgloss.Width(ind) - 1
		if pad > 0 {
			hints += strings.Repeat(" ", pad) + ind
		}
	}
	return sep + "\n" + hints
}
