// Package cache is the local SQLite store: the last known sessions and
// messages of each user plus the saved response library.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	user_id       TEXT NOT NULL,
	session_id    TEXT NOT NULL,
	position      INTEGER NOT NULL,
	title         TEXT NOT NULL,
	last_message  TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL DEFAULT 0,
	updated_at    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, session_id)
);

CREATE TABLE IF NOT EXISTS messages (
	user_id    TEXT NOT NULL,
	session_id TEXT NOT NULL,
	position   INTEGER NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, session_id, position)
);

CREATE TABLE IF NOT EXISTS library (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	session_id TEXT NOT NULL,
	question   TEXT NOT NULL,
	reply      TEXT NOT NULL,
	accurate   INTEGER NOT NULL,
	saved_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_library_user ON library (user_id, saved_at);
`

// CacheError wraps a failed cache operation.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string { return "cache: " + e.Op + ": " + e.Err.Error() }

func (e *CacheError) Unwrap() error { return e.Err }

// ErrNoUser is returned when a user-scoped cache is requested without a uid.
var ErrNoUser = errors.New("no user id")

// DB is an open cache database shared by all users on this machine.
type DB struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens or creates the cache at path. ":memory:" opens a private
// in-memory database.
func Open(path string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, &CacheError{Op: "create directory", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &CacheError{Op: "open", Err: err}
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &CacheError{Op: "set pragma", Err: err}
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &CacheError{Op: "init schema", Err: err}
	}

	return &DB{db: db, log: log, now: time.Now}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// ForUser returns the cache scoped to uid.
func (d *DB) ForUser(uid string) (*UserCache, error) {
	if uid == "" {
		return nil, &CacheError{Op: "scope", Err: ErrNoUser}
	}
	return &UserCache{d: d, uid: uid}, nil
}

// UserCache is one user's slice of the database. It implements
// session.Cache.
type UserCache struct {
	d   *DB
	uid string
}

var _ session.Cache = (*UserCache)(nil)

// UserID returns the uid the cache is scoped to.
func (c *UserCache) UserID() string { return c.uid }

// SaveSessions replaces the cached session list.
func (c *UserCache) SaveSessions(ctx context.Context, sessions []session.ChatSession) error {
	return c.tx(ctx, "save sessions", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, c.uid); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO sessions
			(user_id, session_id, position, title, last_message, message_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, s := range sessions {
			if _, err := stmt.ExecContext(ctx, c.uid, s.ID, i, s.Title, s.LastMessage, s.MessageCount,
				unixNano(s.CreatedAt), unixNano(s.UpdatedAt)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSessions returns the cached session list in its saved order.
func (c *UserCache) LoadSessions(ctx context.Context) ([]session.ChatSession, error) {
	rows, err := c.d.db.QueryContext(ctx, `SELECT session_id, title, last_message, message_count, created_at, updated_at
		FROM sessions WHERE user_id = ? ORDER BY position`, c.uid)
	if err != nil {
		return nil, &CacheError{Op: "load sessions", Err: err}
	}
	defer rows.Close()

	var sessions []session.ChatSession
	for rows.Next() {
		var s session.ChatSession
		var created, updated int64
		if err := rows.Scan(&s.ID, &s.Title, &s.LastMessage, &s.MessageCount, &created, &updated); err != nil {
			return nil, &CacheError{Op: "load sessions", Err: err}
		}
		s.CreatedAt = fromUnixNano(created)
		s.UpdatedAt = fromUnixNano(updated)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Op: "load sessions", Err: err}
	}
	return sessions, nil
}

// SaveMessages replaces the cached messages of one session. Content is
// stored in its raw form so it renormalizes on load.
func (c *UserCache) SaveMessages(ctx context.Context, sessionID string, msgs []session.Message) error {
	return c.tx(ctx, "save messages", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ? AND session_id = ?`, c.uid, sessionID); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages
			(user_id, session_id, position, role, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, m := range msgs {
			data, err := content.MarshalJSON(m.Raw)
			if err != nil {
				return fmt.Errorf("encode message %d: %w", i, err)
			}
			if _, err := stmt.ExecContext(ctx, c.uid, sessionID, i, string(m.Role), string(data), unixNano(m.Timestamp)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadMessages returns the cached messages of one session.
func (c *UserCache) LoadMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	rows, err := c.d.db.QueryContext(ctx, `SELECT role, content, timestamp FROM messages
		WHERE user_id = ? AND session_id = ? ORDER BY position`, c.uid, sessionID)
	if err != nil {
		return nil, &CacheError{Op: "load messages", Err: err}
	}
	defer rows.Close()

	var msgs []session.Message
	for rows.Next() {
		var role, data string
		var ts int64
		if err := rows.Scan(&role, &data, &ts); err != nil {
			return nil, &CacheError{Op: "load messages", Err: err}
		}
		msgs = append(msgs, session.NewMessage(session.Role(role), content.FromJSON([]byte(data)), fromUnixNano(ts)))
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Op: "load messages", Err: err}
	}
	return msgs, nil
}

// DeleteSession drops one session and its messages from the cache.
func (c *UserCache) DeleteSession(ctx context.Context, sessionID string) error {
	return c.tx(ctx, "delete session", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND session_id = ?`, c.uid, sessionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ? AND session_id = ?`, c.uid, sessionID)
		return err
	})
}

// Purge removes the user's cached sessions and messages. The response
// library is kept.
func (c *UserCache) Purge(ctx context.Context) error {
	return c.tx(ctx, "purge", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, c.uid); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ?`, c.uid)
		return err
	})
}

func (c *UserCache) tx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := c.d.db.BeginTx(ctx, nil)
	if err != nil {
		return &CacheError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		c.d.log.Debug("cache write rolled back", zap.String("op", op), zap.Error(err))
		return &CacheError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &CacheError{Op: op, Err: err}
	}
	return nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
