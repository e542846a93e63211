package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// MemoryQueue is a bounded in-process job queue with context-aware
// operations. It serves the single-process deployment; the dispatcher only
// sees the collector.Queue interface.
type MemoryQueue struct {
	ch      chan collector.QueueItem
	closeMu sync.Mutex
	closed  bool
}

// NewMemoryQueue constructs a queue with the provided capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{ch: make(chan collector.QueueItem, capacity)}
}

// Enqueue pushes a job reference or returns when the context ends.
func (q *MemoryQueue) Enqueue(ctx context.Context, item collector.QueueItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next job reference, respecting context cancellation.
func (q *MemoryQueue) Dequeue(ctx context.Context) (collector.QueueItem, error) {
	select {
	case <-ctx.Done():
		return collector.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return collector.QueueItem{}, errors.New("queue closed")
		}
		return item, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *MemoryQueue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
