package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvConfig = "PLCCHAT_CONFIG" // path to a config file, overrides the search
	EnvPrefix = "PLCCHAT"
)

// Config holds all configuration for plcchat.
type Config struct {
	// Backend
	APIBaseURL     string        `json:"api_base_url" mapstructure:"api_base_url"`
	LoginURL       string        `json:"login_url,omitempty" mapstructure:"login_url"`
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
	RateLimit      float64       `json:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	SessionLimit   int           `json:"session_limit" mapstructure:"session_limit"`
	MessageLimit   int           `json:"message_limit" mapstructure:"message_limit"`

	// Local state
	CachePath       string `json:"cache_path" mapstructure:"cache_path"`
	CredentialsPath string `json:"credentials_path" mapstructure:"credentials_path"`

	// UI / logging
	Theme    string `json:"theme" mapstructure:"theme"`
	LogLevel string `json:"log_level" mapstructure:"log_level"`
	LogFile  string `json:"log_file" mapstructure:"log_file"`
	Verbose  bool   `json:"verbose,omitempty" mapstructure:"verbose"`

	Title TitleConfig `json:"title" mapstructure:"title"`
}

// TitleConfig selects how new sessions are named after their first message.
type TitleConfig struct {
	Provider string `json:"provider" mapstructure:"provider"` // "truncate" or "openai"
	Model    string `json:"model,omitempty" mapstructure:"model"`
	BaseURL  string `json:"base_url,omitempty" mapstructure:"base_url"`
	APIKey   string `json:"-" mapstructure:"api_key"`
}

// Load reads configuration from defaults, config files, a .env file in the
// working directory and the environment, in increasing precedence.
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(EnvConfig); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(GetConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("plcchat")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("title.api_key", "PLCCHAT_TITLE_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("title.base_url", "PLCCHAT_TITLE_BASE_URL", "OPENAI_BASE_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CachePath = expandHome(cfg.CachePath)
	cfg.CredentialsPath = expandHome(cfg.CredentialsPath)
	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	dir := GetConfigDir()
	v.SetDefault("api_base_url", "http://localhost:8000/api")
	v.SetDefault("login_url", "http://localhost:5173/login")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("rate_limit", 5.0)
	v.SetDefault("session_limit", 50)
	v.SetDefault("message_limit", 100)
	v.SetDefault("cache_path", filepath.Join(dir, "cache.db"))
	v.SetDefault("credentials_path", filepath.Join(dir, "credentials.json"))
	v.SetDefault("theme", "catppuccin-mocha")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", filepath.Join(dir, "logs", "plcchat.log"))
	v.SetDefault("verbose", false)
	v.SetDefault("title.provider", "truncate")
	v.SetDefault("title.model", "")
	v.SetDefault("title.base_url", "")
	v.SetDefault("title.api_key", "")
}

// GetConfigDir returns the plcchat config directory
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".plcchat"
	}
	return filepath.Join(home, ".config", "plcchat")
}

// DefaultConfigPath is where `plcchat config init` writes.
func DefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), "plcchat.json")
}

// SaveConfig writes the config to a JSON file
func (c *Config) SaveConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	// Durations are written in their string form so the file stays editable.
	type alias Config
	data, err := json.MarshalIndent(struct {
		*alias
		RequestTimeout string `json:"request_timeout"`
	}{alias: (*alias)(c), RequestTimeout: c.RequestTimeout.String()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{API: %s, Theme: %s, Title: %s}", c.APIBaseURL, c.Theme, c.Title.Provider)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
