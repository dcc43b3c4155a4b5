// Package telemetry exposes Prometheus collectors for the clrdebug core.
// The core never starts its own HTTP server (the transport is an
// out-of-scope external collaborator) — an embedder registers Registry()
// into whatever /metrics endpoint it already serves.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds all Prometheus collectors the core populates.
type Metrics struct {
	registry *prometheus.Registry

	SessionState      *prometheus.GaugeVec
	BreakpointHits    prometheus.Counter
	BreakpointCount   *prometheus.GaugeVec
	PumpEventsTotal   *prometheus.CounterVec
	ConditionErrors   prometheus.Counter
	SymbolCacheHits   prometheus.Counter
	SymbolCacheMisses prometheus.Counter
	WaitTimeouts      prometheus.Counter
}

// Get returns the process-wide Metrics instance, constructing it on first
// use against its own private registry (the same once.Do singleton shape
// as the teacher's business-metrics package).
func Get() *Metrics {
	once.Do(func() {
		reg := prometheus.NewRegistry()
		factory := promauto.With(reg)
		instance = &Metrics{
			registry: reg,
			SessionState: factory.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "clrdebug",
				Name:      "session_state",
				Help:      "1 for the session's current state, keyed by state label.",
			}, []string{"state"}),
			BreakpointHits: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "clrdebug",
				Name:      "breakpoint_hits_total",
				Help:      "Total breakpoint hit callbacks matched to a registered breakpoint.",
			}),
			BreakpointCount: factory.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "clrdebug",
				Name:      "breakpoints",
				Help:      "Current breakpoint count by state.",
			}, []string{"state"}),
			PumpEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace: "clrdebug",
				Name:      "pump_events_total",
				Help:      "Native events dispatched by the event pump, by category.",
			}, []string{"category"}),
			ConditionErrors: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "clrdebug",
				Name:      "condition_eval_errors_total",
				Help:      "Breakpoint condition evaluations that failed (paused the target with an attached message).",
			}),
			SymbolCacheHits: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "clrdebug",
				Name:      "symbol_cache_hits_total",
				Help:      "Debug-symbol document cache hits.",
			}),
			SymbolCacheMisses: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "clrdebug",
				Name:      "symbol_cache_misses_total",
				Help:      "Debug-symbol document cache misses requiring a parse.",
			}),
			WaitTimeouts: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "clrdebug",
				Name:      "wait_timeouts_total",
				Help:      "Bounded waits (wait_for_state, wait_for_breakpoint) that expired.",
			}),
		}
	})
	return instance
}

// Registry exposes the private registry for an embedder to merge into its
// own, e.g. via prometheus.NewMultiTransactionalGatherer or a federated
// /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
