// Package sqlite provides a core.SessionStore persisted in a SQLite database
// through github.com/mattn/go-sqlite3. Events are stored as their tagged JSON
// encoding (core.MarshalEvent) in insertion order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/planact/core"
)

// Store is a SQLite backed session store. It is safe for concurrent use.
type Store struct {
	conn *sql.DB
}

// Open connects to the database at dsn (a file path or ":memory:") and
// creates the schema when missing.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	// Every connection of an in-memory database is a separate database.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}

	return &Store{conn: conn}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		event_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, seq);`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Create inserts a new pending session or resets an existing one.
func (s *Store) Create(ctx context.Context, id string) (*core.Session, error) {
	sess := core.NewSession(id)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE session_id = ?`, id); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, title, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, string(sess.Status), sess.Created.UnixNano(), sess.Updated.UnixNano())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return sess, nil
}

// Get loads a session together with its events.
func (s *Store) Get(ctx context.Context, id string) (*core.Session, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT id, title, status, created_at, updated_at FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}

	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT payload FROM events WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		ev, err := core.UnmarshalEvent([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}

		sess.Events = append(sess.Events, ev)
	}

	return sess, rows.Err()
}

// List returns all sessions without their events, most recently updated first.
func (s *Store) List(ctx context.Context) ([]*core.Session, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, title, status, created_at, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Session

	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, sess)
	}

	return out, rows.Err()
}

// AppendEvent stores ev at the end of the session history, creating the
// session when it does not exist. A TitleEvent also updates the title.
func (s *Store) AppendEvent(ctx context.Context, sessionID string, ev core.Event) error {
	payload, err := core.MarshalEvent(ev)
	if err != nil {
		return err
	}

	now := time.Now().UTC().UnixNano()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, title, status, created_at, updated_at) VALUES (?, '', ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, string(core.SessionPending), now, now)
	if err != nil {
		return err
	}

	meta := ev.Meta()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (session_id, event_id, type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, meta.ID, string(meta.Type), string(payload), meta.CreatedAt.UnixNano())
	if err != nil {
		return err
	}

	if te, ok := ev.(core.TitleEvent); ok {
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET title = ? WHERE id = ?`, te.Title, sessionID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateTitle sets the title of an existing session.
func (s *Store) UpdateTitle(ctx context.Context, sessionID, title string) error {
	return s.update(ctx, sessionID, `UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`, title)
}

// UpdateStatus sets the status of an existing session.
func (s *Store) UpdateStatus(ctx context.Context, sessionID string, status core.SessionStatus) error {
	return s.update(ctx, sessionID, `UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`, string(status))
}

// Delete removes a session and its events. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM events WHERE session_id = ?`, sessionID); err != nil {
		return err
	}

	_, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)

	return err
}

func (s *Store) update(ctx context.Context, sessionID, query string, value string) error {
	res, err := s.conn.ExecContext(ctx, query, value, time.Now().UTC().UnixNano(), sessionID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, core.ErrNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*core.Session, error) {
	var (
		id, title, status string
		created, updated  int64
	)

	if err := row.Scan(&id, &title, &status, &created, &updated); err != nil {
		return nil, err
	}

	sess := core.NewSession(id)
	sess.Title = title
	sess.Status = core.SessionStatus(status)
	sess.Created = time.Unix(0, created).UTC()
	sess.Updated = time.Unix(0, updated).UTC()

	return sess, nil
}
