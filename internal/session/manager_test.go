package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
)

func newManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	m, err := NewManager(context.Background(), NewMemoryStore(), ttl, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestManagerCreateAndApply(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, time.Hour)

	id, display, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "0", display)

	steps := []func(e *engine.Engine){
		func(e *engine.Engine) { e.Digit('5') },
		func(e *engine.Engine) { e.Operator(engine.Add) },
		func(e *engine.Engine) { e.Digit('3') },
		func(e *engine.Engine) { e.Equals() },
	}
	var e *engine.Engine
	for _, step := range steps {
		e, err = m.Apply(ctx, id, step)
		require.NoError(t, err)
	}
	assert.Equal(t, "8", e.Display())

	got, err := m.Display(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "8", got)
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, time.Hour)

	a, _, err := m.Create(ctx)
	require.NoError(t, err)
	b, _, err := m.Create(ctx)
	require.NoError(t, err)

	_, err = m.Apply(ctx, a, func(e *engine.Engine) { e.Digit('7') })
	require.NoError(t, err)

	got, err := m.Display(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}

func TestManagerApplyUnknownSession(t *testing.T) {
	m := newManager(t, time.Hour)

	_, err := m.Apply(context.Background(), "missing", func(e *engine.Engine) { e.Digit('1') })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerApplySerializesPerSession(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, time.Hour)

	id, _, err := m.Create(ctx)
	require.NoError(t, err)

	const presses = 50
	var wg sync.WaitGroup
	for range presses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Apply(ctx, id, func(e *engine.Engine) { e.Digit('1') })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.Display(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("1", presses), got)
}

func TestManagerDeleteUpdatesGauge(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, time.Hour)

	id, _, err := m.Create(ctx)
	require.NoError(t, err)
	before := testutil.ToFloat64(activeSessions)

	require.NoError(t, m.Delete(ctx, id))
	assert.Equal(t, before-1, testutil.ToFloat64(activeSessions))
	assert.ErrorIs(t, m.Delete(ctx, id), ErrNotFound)
}

func TestManagerSweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, time.Minute)

	clock := time.Unix(1700000000, 0)
	m.now = func() time.Time { return clock }

	idle, _, err := m.Create(ctx)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	fresh, _, err := m.Create(ctx)
	require.NoError(t, err)

	evictedBefore := testutil.ToFloat64(evictedSessions)

	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, evictedBefore+1, testutil.ToFloat64(evictedSessions))

	_, err = m.Display(ctx, idle)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Display(ctx, fresh)
	assert.NoError(t, err)
}

// sweepingStore runs a sweep from inside Load, between Apply's read and
// write of the same session.
type sweepingStore struct {
	*MemoryStore
	sweep func()
}

func (s *sweepingStore) Load(ctx context.Context, id string) (Record, error) {
	rec, err := s.MemoryStore.Load(ctx, id)
	if s.sweep != nil {
		sweep := s.sweep
		s.sweep = nil
		sweep()
	}
	return rec, err
}

func TestManagerApplyDoesNotResurrectSweptSession(t *testing.T) {
	ctx := context.Background()
	store := &sweepingStore{MemoryStore: NewMemoryStore()}

	m, err := NewManager(ctx, store, time.Minute, zap.NewNop())
	require.NoError(t, err)

	clock := time.Unix(1700000000, 0)
	m.now = func() time.Time { return clock }

	id, _, err := m.Create(ctx)
	require.NoError(t, err)
	gauge := testutil.ToFloat64(activeSessions)

	var (
		swept    int
		sweepErr error
	)
	store.sweep = func() {
		clock = clock.Add(2 * time.Minute)
		swept, sweepErr = m.Sweep(ctx)
	}

	_, err = m.Apply(ctx, id, func(e *engine.Engine) { e.Digit('5') })
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, sweepErr)
	assert.Equal(t, 1, swept)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, gauge-1, testutil.ToFloat64(activeSessions))
}

func TestManagerSweepDisabledWithoutTTL(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, 0)

	clock := time.Unix(1700000000, 0)
	m.now = func() time.Time { return clock }

	_, _, err := m.Create(ctx)
	require.NoError(t, err)
	clock = clock.Add(24 * time.Hour)

	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManagerRunStopsWithContext(t *testing.T) {
	m := newManager(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
