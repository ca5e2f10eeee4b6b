package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
)

const lockStripes = 64

// Manager owns session lifecycles. Inputs for the same session are applied
// one at a time; different sessions only contend when their ids hash to the
// same stripe.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	locks [lockStripes]sync.Mutex
}

// NewManager wraps store. Sessions idle for longer than ttl are removed by
// Sweep; a ttl of zero disables eviction.
func NewManager(ctx context.Context, store Store, ttl time.Duration, logger *zap.Logger) (*Manager, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	activeSessions.Set(float64(n))

	return &Manager{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (m *Manager) lock(id string) *sync.Mutex {
	return &m.locks[xxhash.Sum64String(id)%lockStripes]
}

// Create starts a new cleared session and returns its id and display.
func (m *Manager) Create(ctx context.Context) (string, string, error) {
	id := uuid.NewString()
	e := engine.New()

	if err := m.store.Insert(ctx, Record{ID: id, State: e.Snapshot(), UpdatedAt: m.now()}); err != nil {
		return "", "", err
	}
	activeSessions.Inc()

	return id, e.Display(), nil
}

// Apply loads the session, runs fn against its engine and saves the result.
// The returned engine is a private copy reflecting the state after fn. A
// session swept while fn runs stays gone and Apply returns ErrNotFound.
func (m *Manager) Apply(ctx context.Context, id string, fn func(e *engine.Engine)) (*engine.Engine, error) {
	mu := m.lock(id)
	mu.Lock()
	defer mu.Unlock()

	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	e, err := engine.Restore(rec.State)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}

	fn(e)

	rec.State = e.Snapshot()
	rec.UpdatedAt = m.now()
	if err := m.store.Update(ctx, rec); err != nil {
		return nil, err
	}

	return e, nil
}

// Display returns the session's current display without touching it.
func (m *Manager) Display(ctx context.Context, id string) (string, error) {
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.State.Display, nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	mu := m.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	activeSessions.Dec()
	return nil
}

// Sweep removes sessions idle for longer than the ttl.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	if m.ttl <= 0 {
		return 0, nil
	}

	n, err := m.store.Sweep(ctx, m.now().Add(-m.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		activeSessions.Sub(float64(n))
		evictedSessions.Add(float64(n))
	}
	return n, nil
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Error("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				m.logger.Info("idle sessions evicted", zap.Int("count", n), zap.Duration("ttl", m.ttl))
			}
		}
	}
}

func (m *Manager) Close() error {
	return m.store.Close()
}
