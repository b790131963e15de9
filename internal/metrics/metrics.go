package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxalerts_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fxalerts_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Engine metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxalerts_cycles_total",
			Help: "Evaluation cycles by outcome",
		},
		[]string{"outcome"}, // outcome: completed, skipped, fetch_error
	)

	ActiveRules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fxalerts_active_rules",
			Help: "Number of currently registered alert rules",
		},
	)

	TriggersFiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fxalerts_triggers_fired_total",
			Help: "Total number of threshold crossings detected",
		},
	)

	QuoteFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fxalerts_quote_fetch_duration_seconds",
			Help:    "Time taken to fetch quotes from the provider",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// Dispatch metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxalerts_dispatch_total",
			Help: "Push notification dispatch attempts by outcome",
		},
		[]string{"status"}, // status: sent, failed, no_subscribers
	)
)
