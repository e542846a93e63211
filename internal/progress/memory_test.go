package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestMemoryStorePhaseHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(fixedClock{now: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)})

	require.NoError(t, store.Begin(ctx, "job-1", "dest-1"))
	require.NoError(t, store.SetPhase(ctx, "dest-1", PhaseRenderingEvents))
	require.NoError(t, store.SetPhase(ctx, "dest-1", PhaseAISearch))
	require.NoError(t, store.AddCounts(ctx, "dest-1", 2, 1))
	require.NoError(t, store.SetPhase(ctx, "dest-1", PhaseComplete))

	snap, ok, err := store.Snapshot(ctx, "dest-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, PhaseComplete, snap.Phase)
	require.Equal(t, 2, snap.NewsFound)
	require.Equal(t, 1, snap.EventsFound)
	require.Len(t, snap.History, 4)
	require.Equal(t, PhaseInitializing, snap.History[0].Phase)
}

func TestMemoryStoreBeginResets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(fixedClock{now: time.Now()})

	require.NoError(t, store.Begin(ctx, "job-1", "dest-1"))
	require.NoError(t, store.SetError(ctx, "dest-1", "render timeout"))
	require.NoError(t, store.Begin(ctx, "job-2", "dest-1"))

	snap, ok, err := store.Snapshot(ctx, "dest-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, PhaseInitializing, snap.Phase)
	require.Empty(t, snap.ErrorText)
	require.Equal(t, "job-2", snap.JobID)
	require.Len(t, snap.History, 1)
}

func TestMemoryStoreUnknownDestination(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(fixedClock{now: time.Now()})
	_, ok, err := store.Snapshot(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreConcurrentWriters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(fixedClock{now: time.Now()})
	require.NoError(t, store.Begin(ctx, "job-1", "dest-1"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.AddCounts(ctx, "dest-1", 1, 0)
		}()
	}
	wg.Wait()

	snap, ok, err := store.Snapshot(ctx, "dest-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 50, snap.NewsFound)
}
