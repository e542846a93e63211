// Package main wires together the content collector service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/ai"
	"github.com/rootsofthevalley/content-collector/internal/api"
	"github.com/rootsofthevalley/content-collector/internal/clock/system"
	"github.com/rootsofthevalley/content-collector/internal/collector"
	"github.com/rootsofthevalley/content-collector/internal/config"
	"github.com/rootsofthevalley/content-collector/internal/discovery"
	"github.com/rootsofthevalley/content-collector/internal/dispatcher"
	"github.com/rootsofthevalley/content-collector/internal/id/uuid"
	"github.com/rootsofthevalley/content-collector/internal/jobs"
	"github.com/rootsofthevalley/content-collector/internal/logging"
	"github.com/rootsofthevalley/content-collector/internal/persist"
	"github.com/rootsofthevalley/content-collector/internal/progress"
	"github.com/rootsofthevalley/content-collector/internal/render"
	"github.com/rootsofthevalley/content-collector/internal/schedule"
	"github.com/rootsofthevalley/content-collector/internal/storage/memory"
	"github.com/rootsofthevalley/content-collector/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()

	jobStore, destStore, recordStore, closeStores, err := buildStores(ctx, cfg, clock)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStores()

	provider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("provider init failed", zap.Error(err))
	}

	probe := render.NewCollyProbe(cfg.Render.UserAgent, time.Duration(cfg.Detector.ProbeTimeoutSec)*time.Second)
	detector := render.NewDetector(render.DetectorConfig{
		AllowDomains: cfg.Detector.AllowDomains,
		ProbeEnabled: cfg.Detector.ProbeEnabled,
		ProbeTimeout: time.Duration(cfg.Detector.ProbeTimeoutSec) * time.Second,
	}, probe, logger.Named("detector"))

	headless, err := render.NewRenderer(render.Config{
		MaxParallel:        cfg.Render.MaxParallel,
		UserAgent:          cfg.Render.UserAgent,
		HardTimeout:        time.Duration(cfg.Render.HardTimeoutSec) * time.Second,
		NetworkIdleTimeout: time.Duration(cfg.Render.IdleTimeoutSec) * time.Second,
		SettleDelay:        time.Duration(cfg.Render.SettleDelayMs) * time.Millisecond,
		MaxTextLen:         cfg.Render.MaxTextLen,
		DomainQPS:          cfg.Render.DomainQPS,
	}, logger.Named("render"))
	if err != nil {
		logger.Fatal("renderer init failed", zap.Error(err))
	}
	defer headless.Close()
	static := render.NewStaticFetcher(probe, cfg.Render.MaxTextLen)

	resolver := persist.NewResolver(5 * time.Second)
	saver := persist.NewSaver(recordStore, resolver, clock, idGen, logger.Named("persist"))
	progressStore := progress.NewMemoryStore(clock,
		progress.NewLogSink(logger.Named("progress")),
		progress.NewPrometheusSink(),
	)

	var feed discovery.NewsFeed
	if cfg.Discovery.FeedEnabled {
		feed = discovery.NewGoogleNewsFeed(time.Duration(cfg.Discovery.FeedTimeoutSec) * time.Second)
	}
	orchestrator := discovery.NewOrchestrator(discovery.Config{
		Timezone:  cfg.Discovery.Timezone,
		MaxTokens: cfg.AI.MaxTokens,
	}, provider, detector, headless, static, saver, progressStore, feed, logger.Named("discovery"))

	queue := dispatcher.NewMemoryQueue(cfg.Jobs.QueueDepth)
	jobService := jobs.NewService(jobs.Config{BatchWidth: cfg.Jobs.BatchWidth},
		jobStore, destStore, orchestrator, queue, clock, idGen, logger.Named("jobs"))

	dispatch := dispatcher.New(dispatcher.Config{
		Workers:     cfg.Jobs.Workers,
		MaxAttempts: cfg.Jobs.MaxAttempts,
		RetryDelay:  cfg.RetryDelay(),
		Expiry:      cfg.QueueExpiry(),
	}, queue, jobService, clock, logger.Named("dispatcher"))

	var sweeper api.Sweeper
	scheduler := schedule.New(schedule.Config{
		Spec:        cfg.Schedule.Spec,
		StaleAfter:  cfg.StaleAfter(),
		MaxPerSweep: cfg.Schedule.MaxPerSweep,
	}, destStore, jobService, clock, logger.Named("schedule"))
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	defer scheduler.Stop()
	sweeper = scheduler

	apiServer := api.NewServer(jobService, jobStore, destStore, recordStore, progressStore, sweeper, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Jobs.Workers))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

// buildStores selects Postgres when a DSN is configured, falling back to the
// in-memory stores for local development.
func buildStores(ctx context.Context, cfg config.Config, clock collector.Clock) (
	collector.JobStore, collector.DestinationStore, collector.RecordStore, func(), error,
) {
	if cfg.DB.DSN == "" {
		return memory.NewJobStore(), memory.NewDestinationStore(), memory.NewRecordStore(), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	jobStore, err := postgres.NewJobStore(pool, clock)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, err
	}
	destStore, err := postgres.NewDestinationStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, err
	}
	recordStore, err := postgres.NewRecordStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, err
	}
	return jobStore, destStore, recordStore, pool.Close, nil
}

// buildProvider assembles the failover chain: Claude primary, Gemini
// fallback, either one alone when only one key is configured.
func buildProvider(ctx context.Context, cfg config.Config, logger *zap.Logger) (ai.Provider, error) {
	var primary, fallback ai.Provider

	if cfg.AI.ClaudeAPIKey != "" {
		claude, err := ai.NewClaude(ai.ClaudeConfig{
			APIKey:    cfg.AI.ClaudeAPIKey,
			Model:     cfg.AI.ClaudeModel,
			MaxTokens: cfg.AI.MaxTokens,
		}, logger.Named("claude"))
		if err != nil {
			return nil, err
		}
		primary = claude
	}
	if cfg.AI.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, ai.GeminiConfig{
			APIKey: cfg.AI.GeminiAPIKey,
			Model:  cfg.AI.GeminiModel,
		}, logger.Named("gemini"))
		if err != nil {
			return nil, err
		}
		if primary == nil {
			primary = gemini
		} else {
			fallback = gemini
		}
	}
	if primary == nil {
		return nil, errors.New("no AI provider configured")
	}
	return ai.NewFailover(primary, fallback, ai.FailoverConfig{
		PrimaryBudget: cfg.AI.PrimaryBudget,
		Cooloff:       time.Duration(cfg.AI.CooloffSec) * time.Second,
	}, logger.Named("ai")), nil
}
