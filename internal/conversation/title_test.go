package conversation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	long := strings.Repeat("timer ", 20)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "Start/stop circuit", "Start/stop circuit"},
		{"first line only", "Tank fill\nwith high level alarm", "Tank fill"},
		{"collapses whitespace", "  traffic   light\tsequence ", "traffic light sequence"},
		{"long", long, strings.TrimSpace(string([]rune(strings.TrimSpace(long))[:MaxTitleRunes-1])) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxTitleRunes)
		})
	}
}

func TestOpenAITitler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"\"Motor Start Stop Logic\""},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	titler := NewOpenAITitler("sk-test", srv.URL, "small-model", nil)
	got, err := titler.Title(context.Background(), "how do I latch a motor")

	require.NoError(t, err)
	assert.Equal(t, "Motor Start Stop Logic", got)
}

func TestOpenAITitlerFallsBackToTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	titler := NewOpenAITitler("sk-test", srv.URL, "", nil)
	got, err := titler.Title(context.Background(), "Blink a lamp\nevery second")

	require.NoError(t, err)
	assert.Equal(t, "Blink a lamp", got)
}

func TestNewTitler(t *testing.T) {
	tt, err := NewTitler("", "", "", "", nil)
	require.NoError(t, err)
	assert.IsType(t, TruncateTitler{}, tt)

	_, err = NewTitler("openai", "", "", "", nil)
	assert.Error(t, err)

	_, err = NewTitler("gemini", "k", "", "", nil)
	assert.Error(t, err)
}
