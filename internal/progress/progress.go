// Package progress tracks per-destination collection phases behind an
// explicit store so the API can poll consistent snapshots.
package progress

import (
	"context"
	"time"
)

// Phase is one step of a destination's collection pass.
type Phase string

// Collection phases in the order a pass moves through them. A pass ends in
// either PhaseComplete or PhaseError.
const (
	PhaseInitializing      Phase = "initializing"
	PhaseRenderingEvents   Phase = "rendering_events"
	PhaseRenderingNews     Phase = "rendering_news"
	PhaseAISearch          Phase = "ai_search"
	PhaseProcessingResults Phase = "processing_results"
	PhaseMatchingLinks     Phase = "matching_links"
	PhaseGoogleNews        Phase = "google_news"
	PhaseComplete          Phase = "complete"
	PhaseError             Phase = "error"
)

// Transition records one phase change with its timestamp.
type Transition struct {
	Phase Phase     `json:"phase"`
	At    time.Time `json:"at"`
}

// Snapshot is the readable state of one destination's pass.
type Snapshot struct {
	DestinationID string       `json:"destination_id"`
	JobID         string       `json:"job_id,omitempty"`
	Phase         Phase        `json:"phase"`
	NewsFound     int          `json:"news_found"`
	EventsFound   int          `json:"events_found"`
	ErrorText     string       `json:"error_text,omitempty"`
	History       []Transition `json:"history"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Store persists per-destination progress. Implementations must be safe for
// concurrent use: every destination in a batch writes in parallel.
type Store interface {
	// Begin resets the destination's state to PhaseInitializing.
	Begin(ctx context.Context, jobID, destinationID string) error
	// SetPhase appends a phase transition.
	SetPhase(ctx context.Context, destinationID string, phase Phase) error
	// SetError moves the destination to PhaseError with a message.
	SetError(ctx context.Context, destinationID string, message string) error
	// AddCounts accumulates found counts onto the destination's state.
	AddCounts(ctx context.Context, destinationID string, news, events int) error
	// Snapshot returns the current state; ok is false when the destination
	// has never been tracked.
	Snapshot(ctx context.Context, destinationID string) (Snapshot, bool, error)
	// Snapshots lists all tracked destinations.
	Snapshots(ctx context.Context) ([]Snapshot, error)
}
