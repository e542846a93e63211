package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

type fakeDestStore struct {
	stale      []collector.Destination
	staleErr   error
	lastCutoff time.Time
}

func (f *fakeDestStore) GetDestination(context.Context, string) (collector.Destination, error) {
	return collector.Destination{}, errors.New("not implemented")
}

func (f *fakeDestStore) ListDestinations(context.Context) ([]collector.Destination, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDestStore) MissingDestinations(context.Context, []string) ([]string, error) {
	return nil, nil
}

func (f *fakeDestStore) TouchLastCollection(context.Context, string, time.Time) error {
	return nil
}

func (f *fakeDestStore) StaleDestinations(_ context.Context, cutoff time.Time) ([]collector.Destination, error) {
	f.lastCutoff = cutoff
	return f.stale, f.staleErr
}

type fakeCreator struct {
	created [][]string
	source  string
	err     error
}

func (f *fakeCreator) CreateJob(_ context.Context, ids []string, source, _ string) (collector.Job, error) {
	if f.err != nil {
		return collector.Job{}, f.err
	}
	f.created = append(f.created, ids)
	f.source = source
	return collector.Job{ID: "job-1"}, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestSweepCreatesJobForStaleDestinations(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	dests := &fakeDestStore{stale: []collector.Destination{{ID: "dest-1"}, {ID: "dest-2"}}}
	creator := &fakeCreator{}
	s := New(Config{StaleAfter: 48 * time.Hour}, dests, creator, fixedClock{now: now}, zap.NewNop())

	require.NoError(t, s.Sweep(context.Background()))

	require.Len(t, creator.created, 1)
	require.Equal(t, []string{"dest-1", "dest-2"}, creator.created[0])
	require.Equal(t, "scheduler", creator.source)
	require.Equal(t, now.Add(-48*time.Hour), dests.lastCutoff)
}

func TestSweepNoStaleDestinations(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{}
	s := New(Config{}, &fakeDestStore{}, creator, fixedClock{now: time.Now()}, zap.NewNop())

	require.NoError(t, s.Sweep(context.Background()))
	require.Empty(t, creator.created)
}

func TestSweepCapsBatchSize(t *testing.T) {
	t.Parallel()

	var stale []collector.Destination
	for i := 0; i < 10; i++ {
		stale = append(stale, collector.Destination{ID: string(rune('a' + i))})
	}
	creator := &fakeCreator{}
	s := New(Config{MaxPerSweep: 4}, &fakeDestStore{stale: stale}, creator, fixedClock{now: time.Now()}, zap.NewNop())

	require.NoError(t, s.Sweep(context.Background()))
	require.Len(t, creator.created, 1)
	require.Len(t, creator.created[0], 4)
}

func TestSweepPropagatesStoreError(t *testing.T) {
	t.Parallel()

	s := New(Config{}, &fakeDestStore{staleErr: errors.New("db down")}, &fakeCreator{}, fixedClock{now: time.Now()}, zap.NewNop())
	require.Error(t, s.Sweep(context.Background()))
}
