// Package localstore persists the tracker's state across restarts: the
// active-session slot, the queue of records awaiting upload and the
// credentials used to upload them.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"smart-time-tracker/src/internal/models"
)

const (
	keySession = "active_session"
	keyToken   = "extension_token"
	keyUserID  = "user_id"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = db.Close()
		return nil, fmt.Errorf("chmod state path: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadSession returns the persisted active session, or nil when the slot is empty.
func (s *Store) LoadSession(ctx context.Context) (*models.Session, error) {
	raw, ok, err := s.get(ctx, keySession)
	if err != nil || !ok {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", models.ErrLocalStateRead, err)
	}
	return &session, nil
}

func (s *Store) SaveSession(ctx context.Context, session models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", models.ErrLocalStateWrite, err)
	}
	return s.set(ctx, s.db, keySession, string(raw))
}

func (s *Store) ClearSession(ctx context.Context) error {
	return s.del(ctx, s.db, keySession)
}

// CommitSession empties the session slot and, when rec is not nil, queues rec
// in the same transaction. Either both happen or neither does.
func (s *Store) CommitSession(ctx context.Context, rec *models.LogRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin commit: %v", models.ErrLocalStateWrite, err)
	}
	if rec != nil {
		if err := s.insertRecord(ctx, tx, rec); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}
	if err := s.del(ctx, tx, keySession); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit session: %v", models.ErrLocalStateWrite, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: read %s: %v", models.ErrLocalStateRead, key, err)
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx, `
INSERT INTO kv(key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value, ts(s.now()))
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", models.ErrLocalStateWrite, key, err)
	}
	return nil
}

func (s *Store) del(ctx context.Context, ex execer, key string) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete %s: %v", models.ErrLocalStateWrite, key, err)
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
