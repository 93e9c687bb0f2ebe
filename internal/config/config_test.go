package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME at a temp dir and clears env vars Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{EnvConfig, "PLCCHAT_API_BASE_URL", "PLCCHAT_THEME", "OPENAI_API_KEY", "OPENAI_BASE_URL", "PLCCHAT_TITLE_API_KEY"} {
		t.Setenv(k, "")
	}
	return home
}

func validConfig() *Config {
	return &Config{
		APIBaseURL:     "http://localhost:8000/api",
		RequestTimeout: 30 * time.Second,
		RateLimit:      5,
		SessionLimit:   50,
		MessageLimit:   100,
		Theme:          "catppuccin-mocha",
		LogLevel:       "info",
		Title:          TitleConfig{Provider: "truncate"},
	}
}

// TestLoadDefaults checks built-in defaults with no file or env.
func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8000/api" {
		t.Errorf("APIBaseURL: got %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout: want 30s, got %v", cfg.RequestTimeout)
	}
	if cfg.SessionLimit != 50 || cfg.MessageLimit != 100 {
		t.Errorf("limits: got %d/%d", cfg.SessionLimit, cfg.MessageLimit)
	}
	if want := filepath.Join(home, ".config", "plcchat", "cache.db"); cfg.CachePath != want {
		t.Errorf("CachePath: want %q, got %q", want, cfg.CachePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestLoadFileAndEnv checks file values and env precedence over them.
func TestLoadFileAndEnv(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.yaml")
	yaml := "api_base_url: https://plc.example.com/api/\nrequest_timeout: 10s\ntheme: blueprint\ncache_path: ~/plc/cache.db\ntitle:\n  provider: openai\n  model: small\n"
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvConfig, path)
	t.Setenv("PLCCHAT_THEME", "control-room")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIBaseURL != "https://plc.example.com/api" {
		t.Errorf("APIBaseURL should be trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout: want 10s, got %v", cfg.RequestTimeout)
	}
	if cfg.Theme != "control-room" {
		t.Errorf("Theme: env should win, got %q", cfg.Theme)
	}
	if cfg.CachePath != filepath.Join(home, "plc", "cache.db") {
		t.Errorf("CachePath: ~ not expanded, got %q", cfg.CachePath)
	}
	if cfg.Title.Provider != "openai" || cfg.Title.Model != "small" || cfg.Title.APIKey != "sk-env" {
		t.Errorf("Title: got %+v", cfg.Title)
	}
}

// TestLoadMissingExplicitFile fails when PLCCHAT_CONFIG points nowhere.
func TestLoadMissingExplicitFile(t *testing.T) {
	home := isolate(t)
	t.Setenv(EnvConfig, filepath.Join(home, "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

// TestSaveConfigPermissions verifies SaveConfig writes with 0600 permissions.
func TestSaveConfigPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plcchat.json")

	if err := validConfig().SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %04o", perm)
	}
}

// TestSaveConfigRoundTrip writes config JSON and loads it back.
func TestSaveConfigRoundTrip(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "nested", "plcchat.json")

	cfg := validConfig()
	cfg.Theme = "blueprint"
	cfg.RequestTimeout = 45 * time.Second
	cfg.Title.APIKey = "sk-secret"
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "sk-secret") {
		t.Error("API key must not be written to the config file")
	}
	if !strings.Contains(string(data), `"request_timeout": "45s"`) {
		t.Errorf("request_timeout should be written as a duration string:\n%s", data)
	}

	t.Setenv(EnvConfig, path)
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Theme != "blueprint" || got.RequestTimeout != 45*time.Second {
		t.Errorf("round trip: got theme %q timeout %v", got.Theme, got.RequestTimeout)
	}
}

// TestValidate reports every invalid field.
func TestValidate(t *testing.T) {
	cfg := validConfig()
	cfg.APIBaseURL = "localhost:8000"
	cfg.RequestTimeout = 0
	cfg.SessionLimit = 0
	cfg.Theme = "neon"
	cfg.LogLevel = "trace"
	cfg.Title.Provider = "openai"

	err := cfg.Validate()

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, f := range []string{"api_base_url", "request_timeout", "session_limit", "theme", "log_level", "title.api_key"} {
		if !fields[f] {
			t.Errorf("expected validation error for %s", f)
		}
	}
	if !strings.Contains(err.Error(), "configuration validation failed") {
		t.Errorf("unexpected message: %s", err)
	}
}

// TestCredentials covers load/save/delete of the token file.
func TestCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "credentials.json")

	creds, err := LoadCredentials(path)
	if err != nil || creds.IDToken != "" {
		t.Fatalf("missing file: want empty creds, got %+v, %v", creds, err)
	}

	if err := SaveCredentials(path, &Credentials{IDToken: "tok", Email: "a@example.com"}); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %04o", perm)
	}

	creds, err = LoadCredentials(path)
	if err != nil || creds.IDToken != "tok" {
		t.Fatalf("LoadCredentials: got %+v, %v", creds, err)
	}

	if err := DeleteCredentials(path); err != nil {
		t.Fatalf("DeleteCredentials: %v", err)
	}
	if err := DeleteCredentials(path); err != nil {
		t.Errorf("DeleteCredentials on missing file: %v", err)
	}
}

// TestGetConfigDir returns a non-empty path.
func TestGetConfigDir(t *testing.T) {
	if GetConfigDir() == "" {
		t.Error("GetConfigDir should return a non-empty path")
	}
}
