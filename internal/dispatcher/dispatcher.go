// Package dispatcher fans queued collection jobs out to a worker pool with
// at-least-once retry semantics.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// Processor runs one job to completion. A returned error means the whole job
// failed and may be retried; re-running is safe because the job re-derives
// its remaining work from the checkpoint.
type Processor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// Config tunes the worker pool and the retry policy.
type Config struct {
	Workers int
	// MaxAttempts bounds deliveries per job, first try included.
	MaxAttempts int
	// RetryDelay is the pause before a failed job is requeued.
	RetryDelay time.Duration
	// Expiry drops queue items older than this; zero disables expiry.
	Expiry time.Duration
}

// Dispatcher owns the worker pool draining the job queue.
type Dispatcher struct {
	cfg       Config
	queue     collector.Queue
	processor Processor
	clock     collector.Clock
	logger    *zap.Logger
}

// New builds a Dispatcher.
func New(cfg Config, queue collector.Queue, processor Processor, clock collector.Clock, logger *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cfg:       cfg,
		queue:     queue,
		processor: processor,
		clock:     clock,
		logger:    logger,
	}
}

// Run starts the workers and blocks until the context finishes and every
// worker has drained out.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.work(ctx, id)
		}(i)
	}
	<-ctx.Done()
	wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, workerID int) {
	log := d.logger.With(zap.Int("worker", workerID))
	for {
		item, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue failed", zap.Error(err))
			continue
		}
		d.handle(ctx, log, item)
	}
}

func (d *Dispatcher) handle(ctx context.Context, log *zap.Logger, item collector.QueueItem) {
	if d.expired(item) {
		log.Warn("dropping expired job",
			zap.String("job_id", item.JobID),
			zap.Int("attempt", item.Attempt),
		)
		return
	}

	err := d.processor.ProcessJob(ctx, item.JobID)
	if err == nil {
		return
	}
	log.Warn("job processing failed",
		zap.String("job_id", item.JobID),
		zap.Int("attempt", item.Attempt+1),
		zap.Error(err),
	)

	if item.Attempt+1 >= d.cfg.MaxAttempts {
		log.Error("job exhausted retry budget",
			zap.String("job_id", item.JobID),
			zap.Int("attempts", item.Attempt+1),
		)
		return
	}
	d.requeue(ctx, log, item)
}

func (d *Dispatcher) requeue(ctx context.Context, log *zap.Logger, item collector.QueueItem) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(d.cfg.RetryDelay):
	}
	item.Attempt++
	if err := d.queue.Enqueue(ctx, item); err != nil {
		log.Error("requeue failed", zap.String("job_id", item.JobID), zap.Error(err))
	}
}

func (d *Dispatcher) expired(item collector.QueueItem) bool {
	if d.cfg.Expiry <= 0 || item.Submitted == 0 {
		return false
	}
	age := d.clock.Now().Unix() - item.Submitted
	return age > int64(d.cfg.Expiry/time.Second)
}
