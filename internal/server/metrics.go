package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics tracks compile requests.
//
// Metrics:
//   - leapdecide_compilations_total: compile requests by dialect and outcome
//   - leapdecide_compile_duration_seconds: compile latency by dialect
//   - leapdecide_history_records_total: compilations written to the history store
type Metrics struct {
	compilations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	recorded     prometheus.Counter
}

// NewMetrics creates and registers compile metrics with the provided registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		compilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "leapdecide",
				Name:      "compilations_total",
				Help:      "Total number of compile requests",
			},
			[]string{"dialect", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "leapdecide",
				Name:      "compile_duration_seconds",
				Help:      "Duration of compile requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to 3.2s
			},
			[]string{"dialect"},
		),
		recorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "leapdecide",
				Name:      "history_records_total",
				Help:      "Total number of compilations written to the history store",
			},
		),
	}

	registry.MustRegister(
		m.compilations,
		m.duration,
		m.recorded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCompile records one compile request. outcome is "ok" or an error kind.
func (m *Metrics) ObserveCompile(dialect, outcome string, elapsed time.Duration) {
	m.compilations.WithLabelValues(dialect, outcome).Inc()
	m.duration.WithLabelValues(dialect).Observe(elapsed.Seconds())
}

// ObserveRecord counts a history write.
func (m *Metrics) ObserveRecord() {
	m.recorded.Inc()
}
