// Package schedule creates periodic collection jobs for destinations whose
// last collection has gone stale.
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// JobCreator creates a collection job for a set of destinations.
type JobCreator interface {
	CreateJob(ctx context.Context, destinationIDs []string, source, tier string) (collector.Job, error)
}

// Config tunes the periodic sweep.
type Config struct {
	// Spec is a cron expression; empty disables scheduling.
	Spec string
	// StaleAfter marks a destination stale once its last collection is older
	// than this.
	StaleAfter time.Duration
	// MaxPerSweep caps how many destinations one scheduled job covers.
	MaxPerSweep int
}

// Scheduler runs the cron sweep.
type Scheduler struct {
	cfg    Config
	dests  collector.DestinationStore
	jobs   JobCreator
	clock  collector.Clock
	cron   *cron.Cron
	logger *zap.Logger
}

// New builds a Scheduler.
func New(cfg Config, dests collector.DestinationStore, jobs JobCreator, clock collector.Clock, logger *zap.Logger) *Scheduler {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 7 * 24 * time.Hour
	}
	if cfg.MaxPerSweep <= 0 {
		cfg.MaxPerSweep = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:    cfg,
		dests:  dests,
		jobs:   jobs,
		clock:  clock,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the sweep and starts the cron loop. It is a no-op when no
// cron spec is configured.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Spec == "" {
		s.logger.Info("scheduled collection disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.cfg.Spec, func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Warn("scheduled sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduled collection started", zap.String("spec", s.cfg.Spec))
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep creates one job covering the stalest destinations. It is exported so
// an operator endpoint can trigger it out of band.
func (s *Scheduler) Sweep(ctx context.Context) error {
	cutoff := s.clock.Now().UTC().Add(-s.cfg.StaleAfter)
	stale, err := s.dests.StaleDestinations(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		s.logger.Debug("no stale destinations")
		return nil
	}
	if len(stale) > s.cfg.MaxPerSweep {
		stale = stale[:s.cfg.MaxPerSweep]
	}
	ids := make([]string, len(stale))
	for i, dest := range stale {
		ids[i] = dest.ID
	}
	job, err := s.jobs.CreateJob(ctx, ids, "scheduler", "standard")
	if err != nil {
		return err
	}
	s.logger.Info("scheduled job created",
		zap.String("job_id", job.ID),
		zap.Int("destinations", len(ids)),
	)
	return nil
}
