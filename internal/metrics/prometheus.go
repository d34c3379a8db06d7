// Package metrics exports engine instrumentation to Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal counts probes by outcome
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apimon_checks_total",
			Help: "Total number of endpoint checks by outcome",
		},
		[]string{"outcome"},
	)

	// CheckLatency observes probe latency
	CheckLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apimon_check_latency_seconds",
			Help:    "Endpoint check latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	// ActiveEndpoints is the number of registered endpoints
	ActiveEndpoints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "apimon_active_endpoints",
			Help: "Number of endpoints currently monitored",
		},
	)

	// AlertsTotal counts emitted alerts
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apimon_alerts_total",
			Help: "Total number of alerts emitted",
		},
		[]string{"kind", "severity"},
	)

	// Subscribers is the number of live event subscribers
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "apimon_subscribers",
			Help: "Number of live event subscribers",
		},
	)

	// DroppedSubscribers counts subscribers removed for falling behind
	DroppedSubscribers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apimon_dropped_subscribers_total",
			Help: "Total number of subscribers dropped because their buffer was full",
		},
	)

	// StoreErrors counts persistence failures by operation
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apimon_store_errors_total",
			Help: "Total number of persistence failures",
		},
		[]string{"operation"},
	)

	// PurgedResults counts check results removed by retention
	PurgedResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apimon_purged_results_total",
			Help: "Total number of check results removed by retention",
		},
	)
)

// ObserveCheck records one probe outcome
func ObserveCheck(outcome string, latencyMs int64) {
	ChecksTotal.WithLabelValues(outcome).Inc()
	CheckLatency.WithLabelValues(outcome).Observe(float64(latencyMs) / 1000)
}
