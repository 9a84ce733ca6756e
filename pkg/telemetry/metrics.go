package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine's live control-loop values as Prometheus
// gauges/counter, for poetsim's optional --metrics-addr. This is purely an
// ambient reporting surface the host may attach — pkg/engine imports this
// package only for Sink and Record and never creates or updates a Metrics;
// poetsim wires a Metrics into its own per-iteration loop.
//
// Grounded on github.com/prometheus/client_golang, an indirect dependency
// of ENSIAS-3A-Projects-Projet-Federateur/go.mod in this corpus.
type Metrics struct {
	Speedup        prometheus.Gauge
	Powerup        prometheus.Gauge
	CostEstimate   prometheus.Gauge
	TimeWorkload   prometheus.Gauge
	DispatchTotal  prometheus.Counter
}

// NewMetrics registers the engine's gauges/counter on reg and returns the
// handles poetsim updates each iteration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Speedup: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poet_speedup_current",
			Help: "Current speedup (xup) multiplier commanded by the controller.",
		}),
		Powerup: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poet_powerup_current",
			Help: "Current powerup (xup) multiplier commanded by the controller.",
		}),
		CostEstimate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poet_cost_estimate",
			Help: "Secondary-dimension cost estimate from the most recent planning step.",
		}),
		TimeWorkload: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poet_time_workload_seconds",
			Help: "Kalman-filtered per-iteration time workload estimate, in seconds.",
		}),
		DispatchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poet_dispatches_total",
			Help: "Number of times the apply callback has been invoked.",
		}),
	}
	reg.MustRegister(m.Speedup, m.Powerup, m.CostEstimate, m.TimeWorkload, m.DispatchTotal)
	return m
}

// Observe updates the gauges from one Record and the cost estimate from
// the planning step that produced it. It does not touch DispatchTotal —
// callers increment that directly from their apply callback, since a
// Record is emitted once per period but dispatches can happen (or not)
// every iteration.
func (m *Metrics) Observe(r Record, costEstimate float64) {
	if m == nil {
		return
	}
	m.Speedup.Set(r.Speedup)
	m.Powerup.Set(r.Powerup)
	m.TimeWorkload.Set(r.TimeWorkload)
	m.CostEstimate.Set(costEstimate)
}
