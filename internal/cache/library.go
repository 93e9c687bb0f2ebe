package cache

import (
	"context"
	"time"

	"github.com/Dhanuzh/plcchat/internal/content"
)

// Entry is one piece of accuracy feedback: a question, the reply it got,
// and whether the user marked the reply accurate.
type Entry struct {
	ID        int64
	SessionID string
	Question  string
	Reply     content.Raw
	Accurate  bool
	SavedAt   time.Time
}

// SaveFeedback records e and returns its id. Accurate entries make up the
// response library.
func (c *UserCache) SaveFeedback(ctx context.Context, e Entry) (int64, error) {
	data, err := content.MarshalJSON(e.Reply)
	if err != nil {
		return 0, &CacheError{Op: "save feedback", Err: err}
	}
	at := e.SavedAt
	if at.IsZero() {
		at = c.d.now()
	}
	res, err := c.d.db.ExecContext(ctx, `INSERT INTO library
		(user_id, session_id, question, reply, accurate, saved_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.uid, e.SessionID, e.Question, string(data), e.Accurate, at.UnixNano())
	if err != nil {
		return 0, &CacheError{Op: "save feedback", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &CacheError{Op: "save feedback", Err: err}
	}
	return id, nil
}

// Library returns the entries marked accurate, newest first.
func (c *UserCache) Library(ctx context.Context) ([]Entry, error) {
	return c.feedback(ctx, `SELECT id, session_id, question, reply, accurate, saved_at FROM library
		WHERE user_id = ? AND accurate = 1 ORDER BY saved_at DESC, id DESC`)
}

// Feedback returns every recorded entry, newest first.
func (c *UserCache) Feedback(ctx context.Context) ([]Entry, error) {
	return c.feedback(ctx, `SELECT id, session_id, question, reply, accurate, saved_at FROM library
		WHERE user_id = ? ORDER BY saved_at DESC, id DESC`)
}

func (c *UserCache) feedback(ctx context.Context, query string) ([]Entry, error) {
	rows, err := c.d.db.QueryContext(ctx, query, c.uid)
	if err != nil {
		return nil, &CacheError{Op: "load library", Err: err}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var reply string
		var savedAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Question, &reply, &e.Accurate, &savedAt); err != nil {
			return nil, &CacheError{Op: "load library", Err: err}
		}
		e.Reply = content.FromJSON([]byte(reply))
		e.SavedAt = fromUnixNano(savedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Op: "load library", Err: err}
	}
	return entries, nil
}
