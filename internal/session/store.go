// Package session keeps one calculator engine per client session and
// persists its state between requests.
package session

import (
	"context"
	"errors"
	"time"

	"go-chi-calculator/internal/engine"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
)

// Record is the persisted form of a session.
type Record struct {
	ID        string
	State     engine.Snapshot
	UpdatedAt time.Time
}

// Store persists session records. Implementations must be safe for
// concurrent use; per-session ordering is the Manager's job.
type Store interface {
	Load(ctx context.Context, id string) (Record, error)
	// Insert adds a new record and fails with ErrExists if the id is taken.
	Insert(ctx context.Context, rec Record) error
	// Update overwrites an existing record and fails with ErrNotFound if it
	// was deleted or swept in the meantime.
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
	// Sweep removes records last updated before the given time and reports
	// how many were removed.
	Sweep(ctx context.Context, before time.Time) (int, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
