package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/Dhanuzh/plcchat/internal/theme"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

var (
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validTitleProviders = []string{"truncate", "openai"}
)

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors ValidationErrors
	add := func(field, format string, args ...any) {
		errors = append(errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api_base_url", "must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}

	if c.RequestTimeout <= 0 {
		add("request_timeout", "must be positive")
	}
	if c.RateLimit < 0 {
		add("rate_limit", "must be non-negative")
	}
	if c.SessionLimit < 1 || c.SessionLimit > 500 {
		add("session_limit", "must be between 1 and 500")
	}
	if c.MessageLimit < 1 || c.MessageLimit > 1000 {
		add("message_limit", "must be between 1 and 1000")
	}

	if _, err := theme.NewRegistry().Get(c.Theme); err != nil {
		add("theme", "unknown theme '%s', valid: %s", c.Theme, strings.Join(theme.NewRegistry().List(), ", "))
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		add("log_level", "unknown level '%s', valid: %s", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if !slices.Contains(validTitleProviders, c.Title.Provider) {
		add("title.provider", "unknown provider '%s', valid: %s", c.Title.Provider, strings.Join(validTitleProviders, ", "))
	} else if c.Title.Provider == "openai" && c.Title.APIKey == "" {
		add("title.api_key", "required when title.provider is openai (or set OPENAI_API_KEY)")
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// GetConfigPrecedence returns a description of config source precedence
func GetConfigPrecedence() string {
	return `Configuration is loaded in the following order (later sources override earlier):

1. Built-in defaults
2. Config file (~/.config/plcchat/plcchat.{yaml,json,toml} or ./plcchat.*, or $PLCCHAT_CONFIG)
3. .env file in the working directory
4. Environment variables (PLCCHAT_API_BASE_URL, PLCCHAT_THEME, OPENAI_API_KEY, ...)
5. Command-line flags (--api-url, --theme, --verbose)
`
}
