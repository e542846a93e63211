package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// JobStore persists job ledger rows in Postgres.
type JobStore struct {
	pool  dbConn
	clock collector.Clock
}

// NewJobStore constructs a JobStore from an existing pool.
func NewJobStore(pool dbConn, clock collector.Clock) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const jobColumns = `id, status, source, priority_tier, destination_ids, processed_ids,
	total_destinations, news_found, events_found, error_text, created_at, started_at, finished_at`

// CreateJob inserts a new queued job row.
func (s *JobStore) CreateJob(ctx context.Context, job collector.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	query := `
INSERT INTO collection_jobs (` + jobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		string(job.Status),
		job.Source,
		job.PriorityTier,
		job.DestinationIDs,
		job.ProcessedIDs,
		job.TotalDestinations,
		job.NewsFound,
		job.EventsFound,
		job.ErrorText,
		job.CreatedAt,
		job.StartedAt,
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob loads one job by id.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (collector.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM collection_jobs WHERE id = $1`
	return s.scanJob(s.pool.QueryRow(ctx, query, jobID))
}

// LatestJob loads the most recently created job.
func (s *JobStore) LatestJob(ctx context.Context) (collector.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM collection_jobs ORDER BY created_at DESC LIMIT 1`
	return s.scanJob(s.pool.QueryRow(ctx, query))
}

// UpdateJobStatus moves the job forward in its lifecycle. The started and
// finished timestamps are stamped on the transitions that reach them.
func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID string, status collector.JobStatus, errText string) error {
	now := s.now()
	var query string
	switch status {
	case collector.JobStatusRunning:
		query = `UPDATE collection_jobs
SET status = $2, error_text = $3, started_at = COALESCE(started_at, $4)
WHERE id = $1`
	case collector.JobStatusCompleted, collector.JobStatusFailed:
		query = `UPDATE collection_jobs
SET status = $2, error_text = $3, finished_at = $4
WHERE id = $1`
	default:
		query = `UPDATE collection_jobs
SET status = $2, error_text = $3, created_at = created_at
WHERE id = $1`
	}
	tag, err := s.pool.Exec(ctx, query, jobID, string(status), errText, now)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}

// Checkpoint atomically rewrites the processed set and running counters.
func (s *JobStore) Checkpoint(ctx context.Context, jobID string, processedIDs []string, newsFound, eventsFound int) error {
	query := `UPDATE collection_jobs
SET processed_ids = $2, news_found = $3, events_found = $4
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, jobID, processedIDs, newsFound, eventsFound)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}

func (s *JobStore) scanJob(row pgx.Row) (collector.Job, error) {
	var (
		job    collector.Job
		status string
	)
	err := row.Scan(
		&job.ID,
		&status,
		&job.Source,
		&job.PriorityTier,
		&job.DestinationIDs,
		&job.ProcessedIDs,
		&job.TotalDestinations,
		&job.NewsFound,
		&job.EventsFound,
		&job.ErrorText,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return collector.Job{}, fmt.Errorf("job not found: %w", err)
	}
	if err != nil {
		return collector.Job{}, fmt.Errorf("scan job: %w", err)
	}
	job.Status = collector.JobStatus(status)
	return job, nil
}

func (s *JobStore) now() time.Time {
	if s.clock != nil {
		return s.clock.Now().UTC()
	}
	return time.Now().UTC()
}
