// Package collector defines core types shared across subsystems.
package collector

import "time"

// JobStatus represents the lifecycle state of a collection job.
type JobStatus string

// Job status values persisted in the job ledger. Transitions only move
// forward: queued -> running -> completed|failed.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the ledger row for one collection run over a set of destinations.
// DestinationIDs is ordered and immutable after creation; ProcessedIDs is
// an append-only subset rewritten at each batch checkpoint.
type Job struct {
	ID                string     `json:"id"`
	Status            JobStatus  `json:"status"`
	Source            string     `json:"source"`
	PriorityTier      string     `json:"priority_tier"`
	DestinationIDs    []string   `json:"destination_ids"`
	ProcessedIDs      []string   `json:"processed_ids"`
	TotalDestinations int        `json:"total_destinations"`
	NewsFound         int        `json:"news_found"`
	EventsFound       int        `json:"events_found"`
	ErrorText         string     `json:"error_text,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

// Destination is a tracked point of interest in the valley.
type Destination struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	Activities     []string   `json:"activities,omitempty"`
	WebsiteURL     string     `json:"website_url,omitempty"`
	EventsPageURL  string     `json:"events_page_url,omitempty"`
	NewsPageURL    string     `json:"news_page_url,omitempty"`
	LastCollection *time.Time `json:"last_collection,omitempty"`
}

// ItemKind distinguishes news stories from events.
type ItemKind string

// Supported discovered item kinds.
const (
	KindNews  ItemKind = "news"
	KindEvent ItemKind = "event"
)

// DiscoveredItem is an ephemeral finding returned by the search provider.
// It lives only within one collection pass; StartDate/EndDate are ISO
// yyyy-mm-dd strings and only set for events.
type DiscoveredItem struct {
	Title       string `json:"title"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	SourceName  string `json:"source_name,omitempty"`
	Kind        ItemKind
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Date        string `json:"date,omitempty"`
	// FirstParty marks items discovered through the destination's own
	// rendered pages; they bypass the news age cutoff.
	FirstParty bool `json:"-"`
}

// LinkCandidate is a deep-link candidate extracted from a rendered page.
type LinkCandidate struct {
	URL           string
	Text          string
	ContainerText string
	ClassHint     string
}

// RenderedPage is the outcome of one headless navigation.
type RenderedPage struct {
	URL     string
	Title   string
	Text    string
	Links   []LinkCandidate
	Success bool
	Error   string
}

// NewsRecord is a persisted news row for a destination.
type NewsRecord struct {
	ID            string    `json:"id"`
	DestinationID string    `json:"destination_id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	URL           string    `json:"url,omitempty"`
	SourceName    string    `json:"source_name,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// EventRecord is a persisted event row for a destination.
type EventRecord struct {
	ID            string    `json:"id"`
	DestinationID string    `json:"destination_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	URL           string    `json:"url,omitempty"`
	SourceName    string    `json:"source_name,omitempty"`
	StartDate     string    `json:"start_date,omitempty"`
	EndDate       string    `json:"end_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// QueueItem is the dispatcher work unit referencing a persisted job.
type QueueItem struct {
	JobID     string
	Attempt   int
	Submitted int64
}

// CollectionResult summarizes one destination's collection pass.
type CollectionResult struct {
	NewsSaved   int
	EventsSaved int
}
