package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Dhanuzh/plcchat/internal/api"
	"github.com/Dhanuzh/plcchat/internal/cache"
	"github.com/Dhanuzh/plcchat/internal/config"
)

func TestFilterOSCSequences(t *testing.T) {
	tests := []struct {
		in   string
		drop bool
	}{
		{"]11;rgb:0000/0000/0000", true},
		{"0/0000/0000", true},
		{"rgb:1e1e/1e1e/2e2e", true},
		{"hello", false},
		{"T#5s", false},
	}
	for _, tt := range tests {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.in)}
		got := filterOSCSequences(nil, msg)
		if tt.drop {
			assert.Nil(t, got, tt.in)
		} else {
			assert.Equal(t, msg, got, tt.in)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("api-url", "", "")
	cmd.Flags().String("theme", "", "")
	cmd.Flags().Bool("verbose", false, "")
	_ = cmd.Flags().Set("api-url", "https://plc.example.com/api/")
	_ = cmd.Flags().Set("verbose", "true")

	cfg := &config.Config{APIBaseURL: "http://localhost:8000/api", Theme: "blueprint", LogLevel: "info"}
	applyFlags(cmd, cfg)

	assert.Equal(t, "https://plc.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "blueprint", cfg.Theme, "unset flags keep the config value")
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n  b\tc", 10))
	assert.Equal(t, "abcd…", oneLine("abcdefgh", 5))
}

func TestSessionErr(t *testing.T) {
	notFound := fmt.Errorf("load messages for s9: %w", &api.ServiceError{Op: "get messages", StatusCode: http.StatusNotFound})
	assert.EqualError(t, sessionErr("s9", notFound), "session s9 not found")

	other := &api.ServiceError{Op: "get messages", StatusCode: http.StatusBadGateway}
	assert.Same(t, other, sessionErr("s9", other))

	plain := errors.New("offline")
	assert.Equal(t, plain, sessionErr("s9", plain))
}

func TestDropCachedSessionLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), log)
	require.NoError(t, err)
	uc, err := db.ForUser("u1")
	require.NoError(t, err)
	a := &app{log: log, cache: uc}

	a.dropCachedSession(context.Background(), "s1")
	assert.Zero(t, logs.FilterMessage("drop cached session failed").Len())

	require.NoError(t, db.Close())
	a.dropCachedSession(context.Background(), "s1")
	entries := logs.FilterMessage("drop cached session failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "s1", entries[0].ContextMap()["session"])
}
