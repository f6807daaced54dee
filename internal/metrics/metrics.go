// Package metrics exposes the engine's Prometheus counters: malformed
// trades, signals emitted per kind, and drops from the dispatch and
// persistence queues.
//
// Grounded on etalazz-vsa's prom_counters.go (package-level
// prometheus.NewCounter + MustRegister, nil-safe no-op when disabled).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"orderflow-engine/internal/model"
)

// Registry is the set of counters the engine feeds. The zero value is not
// usable; construct with New or NewNoop.
type Registry struct {
	malformedTrades *prometheus.CounterVec
	signalsEmitted  *prometheus.CounterVec
	dispatchDrops   prometheus.Counter
	persistDrops    prometheus.Counter
	noop            bool
}

// New creates a Registry and registers its collectors against reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to expose via the default /metrics handler.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		malformedTrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_malformed_trades_total",
			Help: "Total trades rejected by the engine before ingestion.",
		}, []string{"reason"}),
		signalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_signals_emitted_total",
			Help: "Total signals emitted, by kind.",
		}, []string{"kind"}),
		dispatchDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_dispatch_drops_total",
			Help: "Total artifacts dropped because a subscriber's channel was full.",
		}),
		persistDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_persistence_drops_total",
			Help: "Total signal records dropped because the persistence queue was full.",
		}),
	}

	if reg != nil {
		reg.MustRegister(r.malformedTrades, r.signalsEmitted, r.dispatchDrops, r.persistDrops)
	}
	return r
}

// NewNoop returns a Registry whose methods are all no-ops, for callers
// that don't want metrics wired (tests, embedders without Prometheus).
func NewNoop() *Registry {
	return &Registry{noop: true}
}

// IncMalformedTrade implements engine.MetricsSink.
func (r *Registry) IncMalformedTrade() {
	if r == nil || r.noop {
		return
	}
	r.malformedTrades.WithLabelValues("invalid_size").Inc()
}

// IncSignalEmitted implements engine.MetricsSink.
func (r *Registry) IncSignalEmitted(kind model.SignalKind) {
	if r == nil || r.noop {
		return
	}
	r.signalsEmitted.WithLabelValues(kind.String()).Inc()
}

// IncDispatchDrop implements dispatcher.DropCounter.
func (r *Registry) IncDispatchDrop() {
	if r == nil || r.noop {
		return
	}
	r.dispatchDrops.Inc()
}

// IncPersistenceDrop is called when the persistence queue is full.
func (r *Registry) IncPersistenceDrop() {
	if r == nil || r.noop {
		return
	}
	r.persistDrops.Inc()
}
