// Package memory provides in-process store implementations for local
// development and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// JobStore keeps job ledger rows in a mutex-guarded map.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]collector.Job
	// order remembers creation order so LatestJob is deterministic.
	order []string
}

// NewJobStore constructs an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]collector.Job)}
}

// CreateJob stores a new job row.
func (s *JobStore) CreateJob(_ context.Context, job collector.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = copyJob(job)
	s.order = append(s.order, job.ID)
	return nil
}

// GetJob returns one job by id.
func (s *JobStore) GetJob(_ context.Context, jobID string) (collector.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return collector.Job{}, ErrNotFound
	}
	return copyJob(job), nil
}

// LatestJob returns the most recently created job.
func (s *JobStore) LatestJob(_ context.Context) (collector.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return collector.Job{}, ErrNotFound
	}
	return copyJob(s.jobs[s.order[len(s.order)-1]]), nil
}

// UpdateJobStatus moves the job's lifecycle state forward.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status collector.JobStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.ErrorText = errText
	s.jobs[jobID] = job
	return nil
}

// Checkpoint rewrites the processed set and counters in one step.
func (s *JobStore) Checkpoint(_ context.Context, jobID string, processedIDs []string, newsFound, eventsFound int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.ProcessedIDs = append([]string(nil), processedIDs...)
	job.NewsFound = newsFound
	job.EventsFound = eventsFound
	s.jobs[jobID] = job
	return nil
}

func copyJob(job collector.Job) collector.Job {
	job.DestinationIDs = append([]string(nil), job.DestinationIDs...)
	job.ProcessedIDs = append([]string(nil), job.ProcessedIDs...)
	return job
}
