// Package earlyinit fixes the background colour lipgloss assumes before
// bubbletea initialises.
//
// bubbletea v1 asks lipgloss for the terminal background during its own
// init, which sends an OSC 11 query. Some terminals (WSL2 in particular)
// answer after the program has started reading stdin, and the reply shows up
// as typed text in the chat input. cmd/plcchat imports this package ahead of
// bubbletea so the value is cached and the query is never sent. Most built-in
// themes are dark.
package earlyinit

import "github.com/charmbracelet/lipgloss"

func init() {
	lipgloss.SetHasDarkBackground(true)
}
