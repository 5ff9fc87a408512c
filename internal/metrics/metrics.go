// Package metrics exposes the gateway's ambient operational counters via
// prometheus, separate from and orthogonal to the NIP-98-protected
// surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CacheHits and CacheMisses count read-path lookups against the query
	// cache.
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relaygate_cache_hits_total",
			Help: "Query cache hits on the read path.",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relaygate_cache_misses_total",
			Help: "Query cache misses on the read path.",
		},
	)

	// DriverTerminalStates counts relay driver invocations by their
	// terminal state (completed/partial/saturated/timeout/empty/idle).
	DriverTerminalStates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaygate_driver_terminal_state_total",
			Help: "Relay driver invocations by terminal state.",
		}, []string{"state"},
	)

	// PublishAttempts counts every attempt_N status write by the publish
	// worker.
	PublishAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relaygate_publish_attempts_total",
			Help: "Publish attempts made by the worker.",
		},
	)

	// PublishOutcomes counts terminal per-message outcomes (published vs
	// retry).
	PublishOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaygate_publish_outcomes_total",
			Help: "Publish worker outcomes by kind.",
		}, []string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheHits, CacheMisses, DriverTerminalStates, PublishAttempts, PublishOutcomes,
	)
}
