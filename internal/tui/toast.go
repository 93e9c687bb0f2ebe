package tui

// toast.go holds short-lived notifications shown in the top-right corner.

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ToastKind controls the colour of the toast.
type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastSuccess
	ToastWarning
	ToastError
)

const defaultToastDuration = 3 * time.Second

// Toast is a single notification entry.
type Toast struct {
	Message string
	Kind    ToastKind
	Expiry  time.Time
}

// toastDismissMsg is fired by the timer to remove expired toasts.
type toastDismissMsg struct{}

func toastTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return toastDismissMsg{}
	})
}

// showToast adds a toast and returns a Cmd that dismisses it.
func (m *Model) showToast(msg string, kind ToastKind) tea.Cmd {
	m.toasts = append(m.toasts, Toast{
		Message: msg,
		Kind:    kind,
		Expiry:  m.now().Add(defaultToastDuration),
	})
	// Keep the stack short.
	if len(m.toasts) > 3 {
		m.toasts = m.toasts[len(m.toasts)-3:]
	}
	return toastTickCmd(defaultToastDuration + 100*time.Millisecond)
}

// pruneToasts removes all expired toasts.
func (m *Model) pruneToasts() {
	now := m.now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Before(t.Expiry) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

func (m *Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	t := m.theme
	lines := make([]string, 0, len(m.toasts))
	for _, toast := range m.toasts {
		var bg lipgloss.Color
		switch toast.Kind {
		case ToastSuccess:
			bg = t.Success
		case ToastWarning:
			bg = t.Warning
		case ToastError:
			bg = t.Error
		default:
			bg = t.Primary
		}
		style := lipgloss.NewStyle().
			Foreground(t.Background).
			Background(bg).
			Padding(0, 2).
			Bold(true)
		lines = append(lines, style.Render(toast.Message))
	}
	return strings.Join(lines, "\n")
}

// injectToasts overlays toasts onto the right end of the first screen
// lines.
func (m *Model) injectToasts(screen string) string {
	toast := m.renderToasts()
	if toast == "" {
		return screen
	}

	toastLines := strings.Split(toast, "\n")
	screenLines := strings.Split(screen, "\n")

	maxToastW := 0
	for _, l := range toastLines {
		maxToastW = max(maxToastW, lipgloss.Width(l))
	}
	startX := max(m.width-maxToastW-1, 0)

	for i := 0; i < len(toastLines) && i < len(screenLines); i++ {
		line := screenLines[i]
		if lipgloss.Width(line) > startX {
			line = truncateANSI(line, startX)
		}
		if pad := startX - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		screenLines[i] = line + toastLines[i]
	}
	return strings.Join(screenLines, "\n")
}
