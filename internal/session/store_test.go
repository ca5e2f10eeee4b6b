package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chi-calculator/internal/engine"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreInsertUpdateLoadDelete(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Unix(1700000000, 123)

			rec := Record{
				ID: "abc",
				State: engine.Snapshot{
					Expression: "5+3",
					Current:    "3",
					LastInput:  engine.KindDigit,
					Display:    "3",
				},
				UpdatedAt: now,
			}
			require.NoError(t, store.Insert(ctx, rec))
			assert.ErrorIs(t, store.Insert(ctx, rec), ErrExists)

			got, err := store.Load(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, rec.State, got.State)
			assert.True(t, now.Equal(got.UpdatedAt))

			rec.State.Display = "8"
			require.NoError(t, store.Update(ctx, rec))
			got, err = store.Load(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, "8", got.State.Display)

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, store.Delete(ctx, "abc"))
			_, err = store.Load(ctx, "abc")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, "abc"), ErrNotFound)

			assert.ErrorIs(t, store.Update(ctx, rec), ErrNotFound)
			_, err = store.Load(ctx, "abc")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreSweep(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Unix(1700000000, 0)
			state := engine.New().Snapshot()

			require.NoError(t, store.Insert(ctx, Record{ID: "old", State: state, UpdatedAt: base}))
			require.NoError(t, store.Insert(ctx, Record{ID: "new", State: state, UpdatedAt: base.Add(time.Hour)}))

			n, err := store.Sweep(ctx, base.Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			_, err = store.Load(ctx, "old")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = store.Load(ctx, "new")
			assert.NoError(t, err)
		})
	}
}
