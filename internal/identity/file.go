package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Dhanuzh/plcchat/internal/config"
)

// TokenEnvVar overrides the stored credentials when set.
const TokenEnvVar = "PLCCHAT_ID_TOKEN"

// ErrTokenExpired is wrapped by IDToken once the stored token has expired.
var ErrTokenExpired = errors.New("id token expired, run `plcchat login` again")

// FileProvider signs users in with an ID token kept in the credentials file
// (or TokenEnvVar). The token is decoded without verification to learn who
// the user is; the backend verifies it on every request.
type FileProvider struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	token   string
	user    *User
	expires time.Time
	subs    map[int]func(*User)
	nextSub int
}

// NewFileProvider loads the token from TokenEnvVar or the credentials file at
// path. A missing token leaves the provider signed out; an unreadable one is
// an error.
func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{
		path: path,
		now:  time.Now,
		subs: make(map[int]func(*User)),
	}

	token := os.Getenv(TokenEnvVar)
	if token == "" {
		creds, err := config.LoadCredentials(path)
		if err != nil {
			return nil, &AuthError{Op: "load credentials", Err: err}
		}
		token = creds.IDToken
	}
	if token == "" {
		return p, nil
	}

	user, exp, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	p.token, p.user, p.expires = token, user, exp
	return p, nil
}

// ParseToken extracts the user and expiry from an ID token's claims.
func ParseToken(token string) (*User, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, time.Time{}, &AuthError{Op: "parse id token", Err: err}
	}

	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	u := &User{
		UID:         str("user_id"),
		DisplayName: str("name"),
		Email:       str("email"),
		PhotoURL:    str("picture"),
	}
	if u.UID == "" {
		u.UID, _ = claims.GetSubject()
	}
	if u.UID == "" {
		return nil, time.Time{}, &AuthError{Op: "parse id token", Err: errors.New("token has no user_id or sub claim")}
	}

	var exp time.Time
	if nd, err := claims.GetExpirationTime(); err == nil && nd != nil {
		exp = nd.Time
	}
	return u, exp, nil
}

// SignIn stores token and notifies subscribers.
func (p *FileProvider) SignIn(ctx context.Context, token string) (*User, error) {
	user, exp, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	creds := &config.Credentials{IDToken: token, Email: user.Email, SavedAt: p.now()}
	if err := config.SaveCredentials(p.path, creds); err != nil {
		return nil, &AuthError{Op: "save credentials", Err: err}
	}

	p.mu.Lock()
	p.token, p.user, p.expires = token, user, exp
	p.mu.Unlock()
	p.notify()
	return user, nil
}

// SignOut forgets the token and removes the credentials file.
func (p *FileProvider) SignOut(ctx context.Context) error {
	if err := config.DeleteCredentials(p.path); err != nil {
		return fmt.Errorf("remove credentials: %w", err)
	}
	p.mu.Lock()
	p.token, p.user, p.expires = "", nil, time.Time{}
	p.mu.Unlock()
	p.notify()
	return nil
}

// IDToken returns the stored token unless it is missing or expired.
func (p *FileProvider) IDToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" {
		return "", ErrNoUser
	}
	if !p.expires.IsZero() && !p.now().Before(p.expires) {
		return "", &AuthError{Op: "get id token", Err: ErrTokenExpired}
	}
	return p.token, nil
}

// Expiry returns when the token expires, or the zero time if unknown.
func (p *FileProvider) Expiry() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expires
}

// Subscribe implements Provider.
func (p *FileProvider) Subscribe(fn func(*User)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	u := p.user
	p.mu.Unlock()

	fn(u)
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *FileProvider) notify() {
	p.mu.Lock()
	u := p.user
	subs := make([]func(*User), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(u)
	}
}
