// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applications_submitted_total",
			Help: "Total number of insurance applications submitted",
		},
		[]string{"insurance_type"},
	)

	ApplicationReviews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_reviews_total",
			Help: "Total number of application reviews by decision",
		},
		[]string{"decision"},
	)

	TransitionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "application_transition_conflicts_total",
			Help: "Reviews rejected because the application was no longer pending",
		},
	)

	PaymentIntentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_created_total",
			Help: "Total number of payment intents created",
		},
		[]string{"currency"},
	)

	PaymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_outcomes_total",
			Help: "Finalized payment transactions by status and source",
		},
		[]string{"status", "source"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Latency of payment processor calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	ReconcilerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciler_runs_total",
			Help: "Reconciler sweeps by result",
		},
		[]string{"result"},
	)

	PendingTransactionsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_reconciler_resolved_total",
			Help: "Stale pending transactions resolved by the reconciler",
		},
	)

	ViewIncrements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "view_counter_increments_total",
			Help: "Total number of view counter increments",
		},
	)

	ViewReadFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "view_counter_read_fallbacks_total",
			Help: "Reads served from the last known count after a store failure",
		},
	)

	ActiveViewStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "view_counter_active_streams",
			Help: "Number of open view counter streams",
		},
	)
)
