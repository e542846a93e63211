// Package ai wraps the AI search providers behind a single Generate
// interface with primary/fallback failover.
package ai

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/metrics"
)

// Request is one prompt sent to a provider.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Provider generates freeform text for a prompt.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Failover routes requests to a primary provider and fails over to a
// fallback on error. A rate-limited primary is benched for a cooloff window
// so subsequent requests go straight to the fallback; a per-run usage budget
// on the primary serves the same purpose for hard quotas.
type Failover struct {
	primary  Provider
	fallback Provider
	logger   *zap.Logger

	primaryBudget int64
	primaryCalls  atomic.Int64
	fallbackCalls atomic.Int64
	benchedUntil  atomic.Int64
	cooloff       time.Duration
}

// FailoverConfig controls the failover policy.
type FailoverConfig struct {
	// PrimaryBudget caps primary calls per process run; 0 means unlimited.
	PrimaryBudget int64
	// Cooloff benches the primary after a rate-limit response.
	Cooloff time.Duration
}

// NewFailover builds a Failover. The fallback may be nil, in which case
// primary errors propagate.
func NewFailover(primary, fallback Provider, cfg FailoverConfig, logger *zap.Logger) *Failover {
	if logger == nil {
		logger = zap.NewNop()
	}
	cooloff := cfg.Cooloff
	if cooloff <= 0 {
		cooloff = time.Minute
	}
	return &Failover{
		primary:       primary,
		fallback:      fallback,
		logger:        logger,
		primaryBudget: cfg.PrimaryBudget,
		cooloff:       cooloff,
	}
}

// Name identifies the composite provider.
func (f *Failover) Name() string {
	return "failover"
}

// Generate tries the primary provider, then the fallback.
func (f *Failover) Generate(ctx context.Context, req Request) (string, error) {
	if f.primaryAvailable() {
		metrics.ProviderCalls.WithLabelValues(f.primary.Name()).Inc()
		f.primaryCalls.Add(1)
		text, err := f.primary.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if IsRateLimited(err) {
			metrics.ProviderRateLimits.Inc()
			f.benchedUntil.Store(time.Now().Add(f.cooloff).UnixNano())
			f.logger.Warn("primary provider rate limited, benching",
				zap.String("provider", f.primary.Name()),
				zap.Duration("cooloff", f.cooloff),
			)
		}
		if f.fallback == nil {
			return "", fmt.Errorf("primary provider: %w", err)
		}
		f.logger.Warn("primary provider failed, using fallback",
			zap.String("primary", f.primary.Name()),
			zap.String("fallback", f.fallback.Name()),
			zap.Error(err),
		)
	} else if f.fallback == nil {
		return "", fmt.Errorf("primary provider unavailable and no fallback configured")
	}

	metrics.ProviderCalls.WithLabelValues(f.fallback.Name()).Inc()
	metrics.ProviderFallbacks.Inc()
	f.fallbackCalls.Add(1)
	text, err := f.fallback.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fallback provider: %w", err)
	}
	return text, nil
}

// Usage returns the primary and fallback call counters.
func (f *Failover) Usage() (primary, fallback int64) {
	return f.primaryCalls.Load(), f.fallbackCalls.Load()
}

func (f *Failover) primaryAvailable() bool {
	if f.primary == nil {
		return false
	}
	if f.primaryBudget > 0 && f.primaryCalls.Load() >= f.primaryBudget {
		return false
	}
	if benched := f.benchedUntil.Load(); benched > 0 && time.Now().UnixNano() < benched {
		return false
	}
	return true
}
