package progress

import (
	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/metrics"
)

// Sink observes phase transitions as the store records them. Implementations
// must be safe for concurrent use and must not block: the store calls them
// while holding its write lock.
type Sink interface {
	ObserveTransition(destinationID string, phase Phase)
}

// LogSink emits a structured log line per phase transition. Useful during
// development or when chasing a stuck destination.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// ObserveTransition logs the transition with structured fields.
func (s *LogSink) ObserveTransition(destinationID string, phase Phase) {
	s.logger.Info("phase transition",
		zap.String("destination_id", destinationID),
		zap.String("phase", string(phase)),
	)
}

// PrometheusSink counts phase transitions per phase label.
type PrometheusSink struct{}

// NewPrometheusSink returns a sink backed by the package-level collectors.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

// ObserveTransition increments the transition counter for the phase.
func (*PrometheusSink) ObserveTransition(_ string, phase Phase) {
	metrics.PhaseTransitions.WithLabelValues(string(phase)).Inc()
}
