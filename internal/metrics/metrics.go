// Package metrics exposes the supervisor-side Prometheus gauges/counters
// served over the localhost admin surface: worker restarts, flood-control
// events, and queue depth.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters/gauges the supervisor updates as it
// observes worker lifecycle events. QueueDepth is registered, but nothing
// in the supervisor sets it.
type Metrics struct {
	WorkerRestarts     prometheus.Counter
	FloodControlEvents prometheus.Counter
	QueueDepth         prometheus.Gauge
	WorkerUp           prometheus.Gauge
}

// New registers every metric against reg and returns the bundle. Pass
// prometheus.NewRegistry() for an isolated registry per process, per the
// teacher's avoidance of package-level global state where practical.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		WorkerRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "juked",
			Subsystem: "supervisor",
			Name:      "worker_restarts_total",
			Help:      "Number of times the supervisor has spawned the worker process.",
		}),
		FloodControlEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "juked",
			Subsystem: "supervisor",
			Name:      "flood_control_events_total",
			Help:      "Number of FloodControlIssues events received from the worker.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "juked",
			Subsystem: "worker",
			Name:      "main_queue_depth",
			Help:      "Number of elements currently in the main queue.",
		}),
		WorkerUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "juked",
			Subsystem: "supervisor",
			Name:      "worker_up",
			Help:      "1 if the worker process is currently running, else 0.",
		}),
	}

	reg.MustRegister(m.WorkerRestarts, m.FloodControlEvents, m.QueueDepth, m.WorkerUp)
	return m
}
