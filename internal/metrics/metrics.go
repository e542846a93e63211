// Package metrics registers the Prometheus counters emitted by the
// collection pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCalls tracks AI search provider invocations by provider name.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_provider_calls_total",
		Help: "The total number of AI provider calls, by provider.",
	}, []string{"provider"})
	// ProviderFallbacks tracks primary-to-fallback provider switches.
	ProviderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_provider_fallbacks_total",
		Help: "The total number of times the fallback provider was used.",
	})
	// ProviderRateLimits tracks rate-limit responses from providers.
	ProviderRateLimits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_provider_rate_limits_total",
		Help: "The total number of rate-limited provider responses.",
	})
	// RendersTotal tracks headless page renders.
	RendersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_renders_total",
		Help: "The total number of headless page renders attempted.",
	})
	// RenderFailures tracks renders that ended in navigation errors or timeouts.
	RenderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_render_failures_total",
		Help: "The total number of failed headless renders.",
	})
	// ItemsPersisted tracks saved rows by kind (news or event).
	ItemsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_items_persisted_total",
		Help: "The total number of news/event rows written.",
	}, []string{"kind"})
	// PhaseTransitions tracks destination phase transitions by phase name.
	PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_phase_transitions_total",
		Help: "The total number of collection phase transitions, by phase.",
	}, []string{"phase"})
	// DuplicatesSkipped tracks items dropped by the duplicate check.
	DuplicatesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_duplicates_skipped_total",
		Help: "The total number of items skipped as duplicates.",
	}, []string{"kind"})
)
