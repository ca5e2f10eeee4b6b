package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-chi-calculator/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	expression TEXT NOT NULL,
	current TEXT NOT NULL,
	last_input TEXT NOT NULL,
	display TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

// SQLiteStore persists records in a SQLite database so sessions survive a
// restart.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (Record, error) {
	var (
		rec       = Record{ID: id}
		lastInput string
		updated   int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT expression, current, last_input, display, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&rec.State.Expression, &rec.State.Current, &lastInput, &rec.State.Display, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session %s: %w", id, err)
	}

	rec.State.LastInput, err = engine.ParseInputKind(lastInput)
	if err != nil {
		return Record{}, fmt.Errorf("load session %s: %w", id, err)
	}
	rec.UpdatedAt = time.Unix(0, updated)

	return rec, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec Record) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, expression, current, last_input, display, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rec.ID,
		rec.State.Expression,
		rec.State.Current,
		rec.State.LastInput.String(),
		rec.State.Display,
		rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, rec Record) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			expression = ?,
			current = ?,
			last_input = ?,
			display = ?,
			updated_at = ?
		WHERE id = ?`,
		rec.State.Expression,
		rec.State.Current,
		rec.State.LastInput.String(),
		rec.State.Display,
		rec.UpdatedAt.UnixNano(),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", rec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %s: %w", rec.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
