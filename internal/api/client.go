// Package api is the HTTP client for the chat backend. It implements
// session.Service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Dhanuzh/plcchat/internal/logging"
)

// DefaultTitle is sent when creating a session.
const DefaultTitle = "New Chat"

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	GetIDToken(ctx context.Context) (string, error)
}

// ServiceError is any failure reported by or while reaching the backend.
type ServiceError struct {
	Op         string
	StatusCode int    // 0 when no response was received
	Detail     string // FastAPI "detail" field, if any
	Err        error
}

func (e *ServiceError) Error() string {
	var sb strings.Builder
	sb.WriteString("chat service: ")
	sb.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimit    float64 // requests per second; 0 disables limiting
	SessionLimit int
	MessageLimit int
	UserAgent    string
	Logger       *zap.Logger
	HTTPClient   *http.Client
}

// Client talks to the chat backend.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       TokenSource
	limiter      *rate.Limiter
	sessionLimit int
	messageLimit int
	userAgent    string
	log          *zap.Logger
}

// NewClient creates a client authenticating with tokens.
func NewClient(tokens TokenSource, opts Options) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		httpClient:   opts.HTTPClient,
		tokens:       tokens,
		limiter:      rate.NewLimiter(rate.Inf, 0),
		sessionLimit: opts.SessionLimit,
		messageLimit: opts.MessageLimit,
		userAgent:    opts.UserAgent,
		log:          opts.Logger,
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if c.sessionLimit <= 0 {
		c.sessionLimit = 50
	}
	if c.messageLimit <= 0 {
		c.messageLimit = 100
	}
	if c.userAgent == "" {
		c.userAgent = "plcchat"
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// do sends one request. in is encoded as the JSON body when non-nil and the
// response is decoded into out when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ServiceError{Op: op, Err: err}
	}

	token, err := c.tokens.GetIDToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &ServiceError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &ServiceError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}

	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	defer logging.LogDuration(c.log, op, zap.String("request_id", requestID))()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.log.Warn("chat service error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", requestID))
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorDetail extracts FastAPI's {"detail": ...} message, or returns the
// raw body text.
func errorDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			return s
		}
		return string(body.Detail)
	}
	return strings.TrimSpace(string(data))
}

func limitQuery(n int) url.Values {
	return url.Values{"limit": {strconv.Itoa(n)}}
}

// IsStatus reports whether err is a ServiceError with the given status.
func IsStatus(err error, status int) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.StatusCode == status
}
