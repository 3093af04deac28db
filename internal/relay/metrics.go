package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered per server so several servers (and tests) can
// coexist in one process.
type metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	completions    *prometheus.CounterVec
	actions        *prometheus.CounterVec
	tourSessions   prometheus.Gauge
	historyFailure prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_relay_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nova_relay_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		completions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_relay_completions_total",
				Help: "Model completions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		actions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_relay_actions_total",
				Help: "Assistant actions extracted from replies",
			},
			[]string{"action"},
		),
		tourSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "nova_relay_tour_sessions",
				Help: "Connected tour bridge sessions",
			},
		),
		historyFailure: f.NewCounter(
			prometheus.CounterOpts{
				Name: "nova_relay_history_failures_total",
				Help: "History reads or writes that failed",
			},
		),
	}
}
