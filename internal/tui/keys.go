package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding of the chat screen. Bindings are grouped by
// the pane that has focus.
type KeyMap struct {
	// Global
	Quit      key.Binding
	NextFocus key.Binding
	PrevFocus key.Binding
	NewChat   key.Binding
	Reload    key.Binding
	Sidebar   key.Binding
	Theme     key.Binding
	Help      key.Binding

	// Input
	Send key.Binding

	// Chat
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Copy       key.Binding
	Accurate   key.Binding
	Inaccurate key.Binding

	// Sidebar
	Open    key.Binding
	Rename  key.Binding
	Delete  key.Binding
	Filter  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		NextFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		PrevFocus: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev pane")),
		NewChat:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		Reload:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Sidebar:   key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "sidebar")),
		Theme:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "theme")),
		Help:      key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "help")),

		Send: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),

		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev block")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next block")),
		PageUp:     key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Top:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Copy:       key.NewBinding(key.WithKeys("c", "y"), key.WithHelp("c", "copy block")),
		Accurate:   key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "accurate")),
		Inaccurate: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "inaccurate")),

		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Rename:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Confirm: key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// bindings adapts a KeyMap for help.Model depending on the focused pane.
type bindings struct {
	k     KeyMap
	focus focus
}

func (b bindings) ShortHelp() []key.Binding {
	k := b.k
	switch b.focus {
	case focusChat:
		return []key.Binding{k.Up, k.Down, k.Copy, k.Accurate, k.Inaccurate, k.NextFocus, k.Help}
	case focusSidebar:
		return []key.Binding{k.Open, k.Rename, k.Delete, k.Filter, k.NextFocus, k.Help}
	default:
		return []key.Binding{k.Send, k.NewChat, k.NextFocus, k.Help, k.Quit}
	}
}

func (b bindings) FullHelp() [][]key.Binding {
	k := b.k
	return [][]key.Binding{
		{k.Send, k.NewChat, k.Reload, k.Quit},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Copy, k.Accurate, k.Inaccurate},
		{k.Open, k.Rename, k.Delete, k.Filter, k.Cancel},
		{k.NextFocus, k.PrevFocus, k.Sidebar, k.Theme, k.Help},
	}
}
