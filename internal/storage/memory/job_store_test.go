package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewJobStore()

	job := collector.Job{
		ID:             "job-1",
		Status:         collector.JobStatusQueued,
		DestinationIDs: []string{"dest-1", "dest-2"},
		ProcessedIDs:   []string{},
	}
	require.NoError(t, store.CreateJob(ctx, job))
	require.Error(t, store.CreateJob(ctx, job))

	require.NoError(t, store.UpdateJobStatus(ctx, "job-1", collector.JobStatusRunning, ""))
	require.NoError(t, store.Checkpoint(ctx, "job-1", []string{"dest-1"}, 2, 0))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, collector.JobStatusRunning, got.Status)
	require.Equal(t, []string{"dest-1"}, got.ProcessedIDs)
	require.Equal(t, 2, got.NewsFound)
}

func TestJobStoreReturnedJobIsACopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewJobStore()
	require.NoError(t, store.CreateJob(ctx, collector.Job{ID: "job-1", DestinationIDs: []string{"dest-1"}}))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	got.DestinationIDs[0] = "mutated"

	again, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "dest-1", again.DestinationIDs[0])
}

func TestJobStoreLatestJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewJobStore()
	_, err := store.LatestJob(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.CreateJob(ctx, collector.Job{ID: "job-1"}))
	require.NoError(t, store.CreateJob(ctx, collector.Job{ID: "job-2"}))

	latest, err := store.LatestJob(ctx)
	require.NoError(t, err)
	require.Equal(t, "job-2", latest.ID)
}

func TestDestinationStoreStaleCutoff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	old := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	store := NewDestinationStore(
		collector.Destination{ID: "dest-never"},
		collector.Destination{ID: "dest-old", LastCollection: &old},
		collector.Destination{ID: "dest-fresh", LastCollection: &fresh},
	)

	stale, err := store.StaleDestinations(ctx, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, stale, 2)
	require.Equal(t, "dest-never", stale[0].ID)
	require.Equal(t, "dest-old", stale[1].ID)
}
