package collector

import (
	"context"
	"time"
)

// JobStore persists job ledger rows and their batch checkpoints.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	LatestJob(ctx context.Context) (Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string) error
	// Checkpoint atomically rewrites the processed set and running counters
	// after a batch barrier.
	Checkpoint(ctx context.Context, jobID string, processedIDs []string, newsFound, eventsFound int) error
}

// DestinationStore reads and touches tracked destinations.
type DestinationStore interface {
	GetDestination(ctx context.Context, id string) (Destination, error)
	ListDestinations(ctx context.Context) ([]Destination, error)
	// MissingDestinations returns the subset of ids with no stored row.
	MissingDestinations(ctx context.Context, ids []string) ([]string, error)
	TouchLastCollection(ctx context.Context, id string, at time.Time) error
	// StaleDestinations lists destinations whose last collection is absent
	// or older than the cutoff, in id order.
	StaleDestinations(ctx context.Context, cutoff time.Time) ([]Destination, error)
}

// RecordStore persists discovered news and event rows.
type RecordStore interface {
	ListNews(ctx context.Context, destinationID string) ([]NewsRecord, error)
	InsertNews(ctx context.Context, rec NewsRecord) error
	ListEvents(ctx context.Context, destinationID string) ([]EventRecord, error)
	InsertEvent(ctx context.Context, rec EventRecord) error
}

// Renderer performs a headless navigation and link extraction.
type Renderer interface {
	Render(ctx context.Context, url string) (RenderedPage, error)
}

// Queue moves job references between the API and the dispatcher workers.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates new unique identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
