// Package jobs owns the collection job ledger and the batch scheduler that
// drives per-destination collection with checkpointed resumability.
package jobs

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// DefaultBatchWidth is the fixed concurrency width of one scheduling batch.
const DefaultBatchWidth = 15

// Collector runs one destination's collection pass. Implementations contain
// their own failures; a pass that goes wrong reports zero counts.
type Collector interface {
	Collect(ctx context.Context, jobID string, dest collector.Destination) collector.CollectionResult
}

// JobError marks a failure that escaped the batch loop. The job is marked
// failed and the error re-raised so the outer dispatcher can retry; the
// retry is safe because remaining work is re-derived from the checkpoint.
type JobError struct {
	JobID string
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %v", e.JobID, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// Config tunes the scheduler.
type Config struct {
	BatchWidth int
}

// Service creates jobs and processes them in fixed-width batches.
type Service struct {
	jobs       collector.JobStore
	dests      collector.DestinationStore
	runner     Collector
	queue      collector.Queue
	clock      collector.Clock
	ids        collector.IDGenerator
	batchWidth int
	logger     *zap.Logger
}

// NewService wires the scheduler. The queue may be nil when jobs are
// processed inline rather than dispatched.
func NewService(
	cfg Config,
	jobs collector.JobStore,
	dests collector.DestinationStore,
	runner Collector,
	queue collector.Queue,
	clock collector.Clock,
	ids collector.IDGenerator,
	logger *zap.Logger,
) *Service {
	width := cfg.BatchWidth
	if width <= 0 {
		width = DefaultBatchWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jobs:       jobs,
		dests:      dests,
		runner:     runner,
		queue:      queue,
		clock:      clock,
		ids:        ids,
		batchWidth: width,
		logger:     logger,
	}
}

// CreateJob validates the destination ids, persists a queued job with an
// empty processed set, and enqueues it for the dispatcher.
func (s *Service) CreateJob(ctx context.Context, destinationIDs []string, source, tier string) (collector.Job, error) {
	if len(destinationIDs) == 0 {
		return collector.Job{}, fmt.Errorf("create job: no destination ids")
	}
	missing, err := s.dests.MissingDestinations(ctx, destinationIDs)
	if err != nil {
		return collector.Job{}, fmt.Errorf("validate destinations: %w", err)
	}
	if len(missing) > 0 {
		return collector.Job{}, fmt.Errorf("create job: unknown destinations %v", missing)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return collector.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	job := collector.Job{
		ID:                id,
		Status:            collector.JobStatusQueued,
		Source:            source,
		PriorityTier:      tier,
		DestinationIDs:    append([]string(nil), destinationIDs...),
		ProcessedIDs:      []string{},
		TotalDestinations: len(destinationIDs),
		CreatedAt:         s.clock.Now().UTC(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return collector.Job{}, fmt.Errorf("persist job: %w", err)
	}
	if s.queue != nil {
		item := collector.QueueItem{JobID: job.ID, Submitted: s.clock.Now().Unix()}
		if err := s.queue.Enqueue(ctx, item); err != nil {
			return collector.Job{}, fmt.Errorf("enqueue job: %w", err)
		}
	}
	s.logger.Info("job created",
		zap.String("job_id", job.ID),
		zap.String("source", source),
		zap.Int("destinations", len(destinationIDs)),
	)
	return job, nil
}

// ProcessJob loads the job, derives the remaining work from the checkpoint,
// and runs it in fixed-width batches with a hard barrier and a checkpoint
// write between batches. Re-invocation after a crash is safe: the processed
// set shrinks the remaining work instead of restarting it.
func (s *Service) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return &JobError{JobID: jobID, Err: fmt.Errorf("load job: %w", err)}
	}
	if job.Status == collector.JobStatusCompleted {
		return nil
	}

	remaining := remainingIDs(job.DestinationIDs, job.ProcessedIDs)
	if err := s.jobs.UpdateJobStatus(ctx, jobID, collector.JobStatusRunning, ""); err != nil {
		return &JobError{JobID: jobID, Err: fmt.Errorf("mark running: %w", err)}
	}

	processed := append([]string(nil), job.ProcessedIDs...)
	newsFound := job.NewsFound
	eventsFound := job.EventsFound

	for start := 0; start < len(remaining); start += s.batchWidth {
		end := start + s.batchWidth
		if end > len(remaining) {
			end = len(remaining)
		}
		batch := remaining[start:end]

		news, events := s.runBatch(ctx, jobID, batch)
		newsFound += news
		eventsFound += events
		processed = append(processed, batch...)

		if err := s.jobs.Checkpoint(ctx, jobID, processed, newsFound, eventsFound); err != nil {
			jobErr := &JobError{JobID: jobID, Err: fmt.Errorf("checkpoint: %w", err)}
			s.markFailed(ctx, jobID, jobErr)
			return jobErr
		}
		s.logger.Info("batch checkpoint written",
			zap.String("job_id", jobID),
			zap.Int("processed", len(processed)),
			zap.Int("total", len(job.DestinationIDs)),
		)
	}

	if err := s.jobs.UpdateJobStatus(ctx, jobID, collector.JobStatusCompleted, ""); err != nil {
		jobErr := &JobError{JobID: jobID, Err: fmt.Errorf("mark completed: %w", err)}
		s.markFailed(ctx, jobID, jobErr)
		return jobErr
	}
	s.logger.Info("job completed",
		zap.String("job_id", jobID),
		zap.Int("news_found", newsFound),
		zap.Int("events_found", eventsFound),
	)
	return nil
}

// runBatch runs every destination in the batch in parallel and waits for the
// full batch. A per-destination failure or panic is contained and contributes
// zero to the counts; it never aborts the batch.
func (s *Service) runBatch(ctx context.Context, jobID string, batch []string) (news, events int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, destinationID := range batch {
		wg.Add(1)
		go func(destinationID string) {
			defer wg.Done()
			result := s.runOne(ctx, jobID, destinationID)
			mu.Lock()
			news += result.NewsSaved
			events += result.EventsSaved
			mu.Unlock()
		}(destinationID)
	}
	wg.Wait()
	return news, events
}

func (s *Service) runOne(ctx context.Context, jobID, destinationID string) (result collector.CollectionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("collection pass panicked",
				zap.String("job_id", jobID),
				zap.String("destination_id", destinationID),
				zap.Any("panic", r),
			)
			result = collector.CollectionResult{}
		}
	}()

	dest, err := s.dests.GetDestination(ctx, destinationID)
	if err != nil {
		s.logger.Warn("destination load failed",
			zap.String("job_id", jobID),
			zap.String("destination_id", destinationID),
			zap.Error(err),
		)
		return collector.CollectionResult{}
	}
	result = s.runner.Collect(ctx, jobID, dest)
	if err := s.dests.TouchLastCollection(ctx, destinationID, s.clock.Now().UTC()); err != nil {
		s.logger.Warn("last collection touch failed",
			zap.String("destination_id", destinationID),
			zap.Error(err),
		)
	}
	return result
}

func (s *Service) markFailed(ctx context.Context, jobID string, cause error) {
	if err := s.jobs.UpdateJobStatus(ctx, jobID, collector.JobStatusFailed, cause.Error()); err != nil {
		s.logger.Error("failed to mark job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// remainingIDs is the set difference destinationIDs − processedIDs in stored
// id order. This recomputation is the entire resumability mechanism.
func remainingIDs(destinationIDs, processedIDs []string) []string {
	done := make(map[string]struct{}, len(processedIDs))
	for _, id := range processedIDs {
		done[id] = struct{}{}
	}
	out := make([]string, 0, len(destinationIDs))
	for _, id := range destinationIDs {
		if _, ok := done[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
