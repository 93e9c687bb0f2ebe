package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderViewportWithScrollbar renders the viewport with a one-column
// scrollbar on the right.
func (m *Model) renderViewportWithScrollbar() string {
	content := m.viewport.View()

	if content == "" || m.viewport.Height < 3 {
		return content
	}

	totalLines := m.viewport.TotalLineCount()
	visibleLines := m.viewport.Height
	if totalLines <= visibleLines {
		return content
	}

	lines := strings.Split(content, "\n")
	if len(lines) > m.viewport.Height {
		lines = lines[:m.viewport.Height]
	}

	scrollbarPos := int(m.viewport.ScrollPercent() * float64(m.viewport.Height-1))

	trackStyle := lipgloss.NewStyle().Foreground(m.theme.Border)
	thumbStyle := lipgloss.NewStyle().Foreground(m.theme.Primary)

	// Lines from viewport.View() are already width-constrained; pad by
	// visual width so ANSI escapes are never sliced.
	maxWidth := m.viewport.Width

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(line)
		if w := lipgloss.Width(line); w < maxWidth {
			result.WriteString(strings.Repeat(" ", maxWidth-w))
		}

		switch {
		case i == scrollbarPos:
			result.WriteString(thumbStyle.Render("█"))
		case i == 0:
			result.WriteString(trackStyle.Render("▲"))
		case i == len(lines)-1:
			result.WriteString(trackStyle.Render("▼"))
		default:
			result.WriteString(trackStyle.Render("│"))
		}

		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// scrollIndicator returns a scroll position badge for the footer.
func (m *Model) scrollIndicator() string {
	if m.viewport.TotalLineCount() <= m.viewport.Height {
		return ""
	}

	dimStyle := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	indicatorStyle := lipgloss.NewStyle().Foreground(m.theme.Primary)

	pct := m.viewport.ScrollPercent()
	var indicator string
	switch {
	case pct < 0.01:
		indicator = "⬆ Top"
	case pct > 0.99:
		indicator = "⬇ Bottom"
	default:
		indicator = fmt.Sprintf("↕ %d%%", int(pct*100))
	}
	return dimStyle.Render("[") + indicatorStyle.Render(indicator) + dimStyle.Render("]")
}
