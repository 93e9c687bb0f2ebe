package theme

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// DefaultName is the theme used when none is configured.
const DefaultName = "catppuccin-mocha"

// Theme represents a color scheme for the TUI
type Theme struct {
	Name        string
	Description string
	Type        string // "dark" or "light"

	// Core colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Success   lipgloss.Color // valid programs, confirmations
	Warning   lipgloss.Color // unknown validation, pending state
	Error     lipgloss.Color // invalid programs, failures
	Info      lipgloss.Color

	// Text colors
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	TextDim   lipgloss.Color

	// UI colors
	Background      lipgloss.Color
	Surface         lipgloss.Color
	Border          lipgloss.Color
	BorderHighlight lipgloss.Color

	// Message roles
	User      lipgloss.Color
	Assistant lipgloss.Color

	// Chroma style used by the code/diagram viewer
	SyntaxTheme string
}

// Registry holds all available themes
type Registry struct {
	themes  map[string]*Theme
	current string
}

// NewRegistry creates a new theme registry with builtin themes
func NewRegistry() *Registry {
	r := &Registry{
		themes:  make(map[string]*Theme),
		current: DefaultName,
	}
	for _, t := range builtins() {
		r.Register(t)
	}
	return r
}

// Get returns a theme by name
func (r *Registry) Get(name string) (*Theme, error) {
	t, ok := r.themes[name]
	if !ok {
		return nil, fmt.Errorf("theme not found: %s", name)
	}
	return t, nil
}

// Current returns the currently active theme
func (r *Registry) Current() *Theme {
	t, err := r.Get(r.current)
	if err != nil {
		return Default()
	}
	return t
}

// SetCurrent sets the current theme
func (r *Registry) SetCurrent(name string) error {
	if _, ok := r.themes[name]; !ok {
		return fmt.Errorf("theme not found: %s", name)
	}
	r.current = name
	return nil
}

// List returns all available theme names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.themes))
	for name := range r.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register registers a custom theme
func (r *Registry) Register(t *Theme) {
	r.themes[t.Name] = t
}

// Default returns the default theme (Catppuccin Mocha)
func Default() *Theme {
	return CatppuccinMocha()
}
