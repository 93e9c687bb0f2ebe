package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Dhanuzh/plcchat/internal/theme"
)

const minWidth = 20

// Renderer draws block views for a terminal of a given width.
type Renderer struct {
	theme *theme.Theme
	hl    *Highlighter
	width int
}

// NewRenderer creates a renderer using t's colors and syntax style.
func NewRenderer(t *theme.Theme, width int) *Renderer {
	if t == nil {
		t = theme.Default()
	}
	r := &Renderer{theme: t, hl: NewHighlighter(t.SyntaxTheme)}
	r.SetWidth(width)
	return r
}

// SetWidth updates the wrap width.
func (r *Renderer) SetWidth(width int) {
	if width < minWidth {
		width = minWidth
	}
	r.width = width
}

// Width returns the wrap width.
func (r *Renderer) Width() int { return r.width }

// ToneColor maps a validation tone onto the theme.
func (r *Renderer) ToneColor(t Tone) lipgloss.Color {
	switch t {
	case Positive:
		return r.theme.Success
	case Negative:
		return r.theme.Error
	default:
		return r.theme.Warning
	}
}

// Blocks renders views top to bottom, separated by blank lines. copied
// reports the acknowledgement state per block and may be nil.
func (r *Renderer) Blocks(views []BlockView, copied func(Key) bool) string {
	parts := make([]string, 0, len(views))
	for _, v := range views {
		parts = append(parts, r.Block(v, copied != nil && copied(v.Key)))
	}
	return strings.Join(parts, "\n\n")
}

// Block renders one view.
func (r *Renderer) Block(v BlockView, copied bool) string {
	var sb strings.Builder
	if v.Mode == Code {
		sb.WriteString(r.code(v, copied))
	} else {
		sb.WriteString(r.prose(v, copied))
	}
	if v.Validation != nil {
		sb.WriteString("\n")
		sb.WriteString(r.panel(*v.Validation))
	}
	return sb.String()
}

func (r *Renderer) prose(v BlockView, copied bool) string {
	body := lipgloss.NewStyle().Foreground(r.theme.Assistant).
		Render(wordwrap.String(v.Content, r.width))
	if copied {
		body += "\n" + r.copiedBadge()
	}
	return body
}

func (r *Renderer) code(v BlockView, copied bool) string {
	border := lipgloss.NewStyle().Foreground(r.theme.Border)
	title := lipgloss.NewStyle().Foreground(r.theme.Primary).Bold(true).Render(v.Title)

	header := border.Render("╭─ ") + title + " "
	if copied {
		header += r.copiedBadge() + " "
	}
	fill := r.width - lipgloss.Width(header) - 1
	if fill > 0 {
		header += border.Render(strings.Repeat("─", fill))
	}

	var sb strings.Builder
	sb.WriteString(header)
	// Lines are framed one by one; highlighted output carries ANSI escapes
	// that lipgloss width handling would mangle.
	for _, line := range r.hl.HighlightLines(v.Content, v.Language) {
		sb.WriteString("\n")
		sb.WriteString(border.Render("│ "))
		sb.WriteString(line)
	}
	sb.WriteString("\n")
	sb.WriteString(border.Render("╰" + strings.Repeat("─", max(r.width-1, 1))))
	return sb.String()
}

func (r *Renderer) panel(p ValidationPanel) string {
	color := r.ToneColor(p.Tone)
	strong := lipgloss.NewStyle().Foreground(color).Bold(true)
	muted := lipgloss.NewStyle().Foreground(r.theme.TextMuted)

	lines := []string{
		strong.Render("● "+p.StatusLabel()) + muted.Render("  ·  ") + strong.Render(p.ExecutableLabel()),
	}
	inner := r.width - 4
	if p.Reason != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(r.theme.Text).Render(wordwrap.String(p.Reason, inner)))
	}
	if len(p.Warnings) > 0 {
		lines = append(lines, muted.Render("Warnings:"))
		for _, w := range p.Warnings {
			lines = append(lines, lipgloss.NewStyle().Foreground(r.theme.Warning).
				Render(wordwrap.String("• "+w, inner)))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (r *Renderer) copiedBadge() string {
	return lipgloss.NewStyle().Foreground(r.theme.Success).Render("✓ Copied")
}
