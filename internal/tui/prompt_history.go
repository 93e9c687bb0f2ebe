package tui

// prompt_history.go recalls earlier questions into the input. Up on the first
// input line goes back, down on the last line goes forward. Entries persist
// as JSON lines when a file is configured.

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const maxHistoryEntries = 50

// PromptHistory is a bounded list of sent questions with a browse cursor.
type PromptHistory struct {
	entries []string // oldest first
	index   int      // len(entries) means the draft, not a history entry
	draft   string   // input saved when browsing starts
	file    string
	log     *zap.Logger
}

// NewPromptHistory loads history from file. An empty file path keeps the
// history in memory.
func NewPromptHistory(file string, log *zap.Logger) *PromptHistory {
	if log == nil {
		log = zap.NewNop()
	}
	h := &PromptHistory{file: file, log: log}
	h.load()
	h.index = len(h.entries)
	return h
}

func (h *PromptHistory) load() {
	if h.file == "" {
		return
	}
	f, err := os.Open(h.file)
	if err != nil {
		if !os.IsNotExist(err) {
			h.log.Debug("read prompt history failed", zap.Error(err))
		}
		return
	}
	defer f.Close()

	var entries []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var s string
		if err := json.Unmarshal(sc.Bytes(), &s); err == nil && s != "" {
			entries = append(entries, s)
		}
	}
	if len(entries) > maxHistoryEntries {
		entries = entries[len(entries)-maxHistoryEntries:]
	}
	h.entries = entries
}

// Append records a sent question and resets browsing.
func (h *PromptHistory) Append(input string) {
	defer h.Reset()
	if input == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == input {
		return
	}
	h.entries = append(h.entries, input)
	if len(h.entries) > maxHistoryEntries {
		h.entries = h.entries[len(h.entries)-maxHistoryEntries:]
	}
	h.persist()
}

// Browsing reports whether an entry, not the draft, is shown.
func (h *PromptHistory) Browsing() bool { return h.index < len(h.entries) }

// Older steps back and returns the entry to show. current is kept as the
// draft when browsing starts. ok is false when there is nothing older.
func (h *PromptHistory) Older(current string) (string, bool) {
	if h.index == 0 {
		return "", false
	}
	if !h.Browsing() {
		h.draft = current
	}
	h.index--
	return h.entries[h.index], true
}

// Newer steps forward and returns the entry, or the draft past the newest.
func (h *PromptHistory) Newer() (string, bool) {
	if !h.Browsing() {
		return "", false
	}
	h.index++
	if !h.Browsing() {
		return h.draft, true
	}
	return h.entries[h.index], true
}

// Reset leaves browsing and forgets the draft.
func (h *PromptHistory) Reset() {
	h.index = len(h.entries)
	h.draft = ""
}

func (h *PromptHistory) persist() {
	if h.file == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		h.log.Debug("write prompt history failed", zap.Error(err))
		return
	}
	f, err := os.Create(h.file)
	if err != nil {
		h.log.Debug("write prompt history failed", zap.Error(err))
		return
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, e := range h.entries {
		if err := enc.Encode(e); err != nil {
			h.log.Debug("write prompt history failed", zap.Error(err))
			return
		}
	}
}
