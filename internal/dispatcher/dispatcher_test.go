package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

type fakeProcessor struct {
	mu       sync.Mutex
	failures map[string]int
	seen     map[string]int
	done     chan string
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		failures: make(map[string]int),
		seen:     make(map[string]int),
		done:     make(chan string, 32),
	}
}

func (f *fakeProcessor) ProcessJob(_ context.Context, jobID string) error {
	f.mu.Lock()
	f.seen[jobID]++
	attempts := f.seen[jobID]
	failuresWanted := f.failures[jobID]
	f.mu.Unlock()

	if attempts <= failuresWanted {
		return errors.New("transient failure")
	}
	f.done <- jobID
	return nil
}

func (f *fakeProcessor) attempts(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[jobID]
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func TestDispatcherProcessesQueuedJob(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue(8)
	processor := newFakeProcessor()
	d := New(Config{Workers: 2, RetryDelay: time.Millisecond}, queue, processor, realClock{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	require.NoError(t, queue.Enqueue(ctx, collector.QueueItem{JobID: "job-1"}))
	waitFor(t, processor.done, "job-1")
	cancel()
}

func TestDispatcherRetriesFailedJob(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue(8)
	processor := newFakeProcessor()
	processor.failures["job-1"] = 2
	d := New(Config{Workers: 1, MaxAttempts: 3, RetryDelay: time.Millisecond}, queue, processor, realClock{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	require.NoError(t, queue.Enqueue(ctx, collector.QueueItem{JobID: "job-1"}))
	waitFor(t, processor.done, "job-1")
	require.Equal(t, 3, processor.attempts("job-1"))
	cancel()
}

func TestDispatcherStopsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue(8)
	processor := newFakeProcessor()
	processor.failures["job-1"] = 10
	d := New(Config{Workers: 1, MaxAttempts: 2, RetryDelay: time.Millisecond}, queue, processor, realClock{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	require.NoError(t, queue.Enqueue(ctx, collector.QueueItem{JobID: "job-1"}))

	// Give the retries time to settle, then confirm the budget held.
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, 2, processor.attempts("job-1"))
	cancel()
}

func TestDispatcherDropsExpiredItem(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue(8)
	processor := newFakeProcessor()
	d := New(Config{Workers: 1, Expiry: time.Minute, RetryDelay: time.Millisecond}, queue, processor, realClock{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	stale := collector.QueueItem{JobID: "job-old", Submitted: time.Now().Add(-2 * time.Minute).Unix()}
	require.NoError(t, queue.Enqueue(ctx, stale))
	require.NoError(t, queue.Enqueue(ctx, collector.QueueItem{JobID: "job-new", Submitted: time.Now().Unix()}))

	waitFor(t, processor.done, "job-new")
	require.Zero(t, processor.attempts("job-old"))
	cancel()
}

func TestMemoryQueueContextCancellation(t *testing.T) {
	t.Parallel()

	queue := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := queue.Dequeue(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
