// Package identity exposes the signed-in user and ID token acquisition for
// the lifetime of the application.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// User is the signed-in identity.
type User struct {
	UID         string `json:"uid" yaml:"uid"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty" yaml:"photo_url,omitempty"`
}

// Name returns the best human-readable label for the user.
func (u *User) Name() string {
	switch {
	case u == nil:
		return ""
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return u.UID
	}
}

// AuthError reports a failure to obtain or use an identity.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrNoUser is returned when a token is requested while nobody is signed in.
var ErrNoUser = &AuthError{Op: "get id token", Err: errors.New("no user is signed in")}

// Provider is an identity provider.
type Provider interface {
	// Subscribe calls fn with the current user immediately and again on
	// every sign-in or sign-out. The returned function unsubscribes.
	Subscribe(fn func(*User)) (unsubscribe func())
	// IDToken returns a bearer token for the signed-in user.
	IDToken(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// Context tracks the current user of a Provider between Start and Close.
// Until the provider reports for the first time, Loading is true.
type Context struct {
	provider Provider

	mu          sync.RWMutex
	user        *User
	loading     bool
	unsubscribe func()
	listeners   []func(*User)
}

// NewContext creates a context for p. Call Start to begin tracking.
func NewContext(p Provider) *Context {
	return &Context{provider: p, loading: true}
}

// Start subscribes to the provider's state changes.
func (c *Context) Start() {
	unsub := c.provider.Subscribe(c.setUser)
	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()
}

// Close stops tracking the provider.
func (c *Context) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// OnChange registers fn to run after every user change.
func (c *Context) OnChange(fn func(*User)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Context) setUser(u *User) {
	c.mu.Lock()
	if u != nil {
		cp := *u
		u = &cp
	}
	c.user = u
	c.loading = false
	listeners := append(([]func(*User))(nil), c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(u)
	}
}

// User returns a copy of the signed-in user, or nil.
func (c *Context) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	cp := *c.user
	return &cp
}

// Loading reports whether the provider has not reported yet.
func (c *Context) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// GetIDToken returns a token for the signed-in user, or ErrNoUser.
func (c *Context) GetIDToken(ctx context.Context) (string, error) {
	if c.User() == nil {
		return "", ErrNoUser
	}
	tok, err := c.provider.IDToken(ctx)
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) {
			return "", err
		}
		return "", &AuthError{Op: "get id token", Err: err}
	}
	return tok, nil
}

// Logout signs the user out through the provider.
func (c *Context) Logout(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		return &AuthError{Op: "sign out", Err: err}
	}
	return nil
}
