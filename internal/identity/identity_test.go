package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func newProvider(t *testing.T) (*FileProvider, string) {
	t.Helper()
	t.Setenv(TokenEnvVar, "")
	path := filepath.Join(t.TempDir(), "credentials.json")
	p, err := NewFileProvider(path)
	require.NoError(t, err)
	return p, path
}

func TestParseToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signToken(t, jwt.MapClaims{
		"user_id": "uid-1",
		"name":    "Asha Rao",
		"email":   "asha@example.com",
		"picture": "https://example.com/a.png",
		"exp":     exp.Unix(),
	})

	u, gotExp, err := ParseToken(tok)

	require.NoError(t, err)
	assert.Equal(t, &User{UID: "uid-1", DisplayName: "Asha Rao", Email: "asha@example.com", PhotoURL: "https://example.com/a.png"}, u)
	assert.True(t, exp.Equal(gotExp))
}

func TestParseTokenFallsBackToSubject(t *testing.T) {
	u, _, err := ParseToken(signToken(t, jwt.MapClaims{"sub": "uid-2"}))

	require.NoError(t, err)
	assert.Equal(t, "uid-2", u.UID)
	assert.Equal(t, "uid-2", u.Name())
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, _, err := ParseToken("not-a-jwt")

	var ae *AuthError
	assert.ErrorAs(t, err, &ae)

	_, _, err = ParseToken(signToken(t, jwt.MapClaims{"email": "x@example.com"}))
	assert.ErrorAs(t, err, &ae)
}

func TestContextWithoutUser(t *testing.T) {
	p, _ := newProvider(t)
	c := NewContext(p)
	assert.True(t, c.Loading())

	c.Start()
	defer c.Close()

	assert.False(t, c.Loading())
	assert.Nil(t, c.User())
	_, err := c.GetIDToken(context.Background())
	assert.ErrorIs(t, err, ErrNoUser)
	var ae *AuthError
	assert.True(t, errors.As(err, &ae))
}

func TestSignInPersistsAndNotifies(t *testing.T) {
	p, path := newProvider(t)
	c := NewContext(p)
	c.Start()
	defer c.Close()
	var seen []*User
	c.OnChange(func(u *User) { seen = append(seen, u) })

	tok := signToken(t, jwt.MapClaims{"user_id": "uid-1", "email": "asha@example.com"})
	_, err := p.SignIn(context.Background(), tok)
	require.NoError(t, err)

	require.NotNil(t, c.User())
	assert.Equal(t, "asha@example.com", c.User().Name())
	got, err := c.GetIDToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, got)
	require.Len(t, seen, 1)

	// A fresh provider picks the token up from disk.
	again, err := NewFileProvider(path)
	require.NoError(t, err)
	tok2, err := again.IDToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, tok2)
}

func TestLogoutClearsUser(t *testing.T) {
	p, path := newProvider(t)
	_, err := p.SignIn(context.Background(), signToken(t, jwt.MapClaims{"user_id": "uid-1"}))
	require.NoError(t, err)
	c := NewContext(p)
	c.Start()
	defer c.Close()
	require.NotNil(t, c.User())

	require.NoError(t, c.Logout(context.Background()))

	assert.Nil(t, c.User())
	again, err := NewFileProvider(path)
	require.NoError(t, err)
	_, err = again.IDToken(context.Background())
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestExpiredToken(t *testing.T) {
	p, _ := newProvider(t)
	_, err := p.SignIn(context.Background(), signToken(t, jwt.MapClaims{
		"user_id": "uid-1",
		"exp":     time.Now().Add(time.Minute).Unix(),
	}))
	require.NoError(t, err)
	p.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = p.IDToken(context.Background())

	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestEnvTokenWins(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{"user_id": "env-user"})
	t.Setenv(TokenEnvVar, tok)

	p, err := NewFileProvider(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	c := NewContext(p)
	c.Start()
	defer c.Close()
	assert.Equal(t, "env-user", c.User().UID)
}

func TestCloseUnsubscribes(t *testing.T) {
	p, _ := newProvider(t)
	c := NewContext(p)
	c.Start()
	c.Close()

	_, err := p.SignIn(context.Background(), signToken(t, jwt.MapClaims{"user_id": "uid-1"}))
	require.NoError(t, err)

	assert.Nil(t, c.User())
}
