// Package telemetry exposes the client's prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/mosaicnetworks/hgclient/src/executable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hgclient"

// Metrics records request executions. Each client registers its own
// collectors. A nil *Metrics records nothing.
type Metrics struct {
	Attempts        *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	Executions      *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
	NodeBackoff     *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. It returns
// nil when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total number of attempts sent to nodes, by outcome.",
			},
			[]string{"request", "node", "outcome"},
		),
		AttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Latency of single attempts.",
				// 1ms .. ~16s
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"request"},
		),
		Executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of requests executed, by final state.",
			},
			[]string{"request", "state"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Latency of requests, all attempts included.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 18),
			},
			[]string{"request"},
		),
		NodeBackoff: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "node_backoff_seconds",
				Help:      "Current backoff window of nodes that failed.",
			},
			[]string{"node"},
		),
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Attempts, m.AttemptDuration, m.Executions, m.Duration, m.NodeBackoff}
}

// Unregister removes the collectors from reg so that another client can
// register on it.
func (m *Metrics) Unregister(reg prometheus.Registerer) {
	if m == nil {
		return
	}
	for _, c := range m.collectors() {
		reg.Unregister(c)
	}
}

// ObserveAttempt implements executable.Observer.
func (m *Metrics) ObserveAttempt(name string, node string, outcome executable.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(name, node, outcome.String()).Inc()
	m.AttemptDuration.WithLabelValues(name).Observe(d.Seconds())
	if outcome == executable.Success {
		m.NodeBackoff.WithLabelValues(node).Set(0)
	}
}

// ObserveNodeBackoff implements executable.Observer.
func (m *Metrics) ObserveNodeBackoff(node string, backoff time.Duration) {
	if m == nil {
		return
	}
	m.NodeBackoff.WithLabelValues(node).Set(backoff.Seconds())
}

// ObserveExecution implements executable.Observer.
func (m *Metrics) ObserveExecution(name string, state executable.State, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(name, state.String()).Inc()
	m.Duration.WithLabelValues(name).Observe(d.Seconds())
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
