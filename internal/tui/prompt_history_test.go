package tui

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptHistoryBrowse(t *testing.T) {
	h := NewPromptHistory("", nil)
	_, ok := h.Older("draft")
	assert.False(t, ok, "empty history")

	h.Append("first")
	h.Append("second")
	h.Append("second")

	got, ok := h.Older("half typed")
	require.True(t, ok)
	assert.Equal(t, "second", got)
	got, _ = h.Older("ignored")
	assert.Equal(t, "first", got)
	_, ok = h.Older("")
	assert.False(t, ok, "nothing older than the first entry")

	got, _ = h.Newer()
	assert.Equal(t, "second", got)
	got, ok = h.Newer()
	require.True(t, ok)
	assert.Equal(t, "half typed", got, "past the newest entry the draft comes back")
	assert.False(t, h.Browsing())
	_, ok = h.Newer()
	assert.False(t, ok)
}

func TestPromptHistoryPersists(t *testing.T) {
	file := filepath.Join(t.TempDir(), "history", "prompts.jsonl")
	h := NewPromptHistory(file, nil)
	for i := 0; i < maxHistoryEntries+5; i++ {
		h.Append(string(rune('a'+i%26)) + "\nline")
	}

	again := NewPromptHistory(file, nil)
	assert.Len(t, again.entries, maxHistoryEntries)
	assert.Equal(t, h.entries, again.entries)
}
