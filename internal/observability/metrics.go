package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreated    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "medride", Name: "rides_created_total", Help: "Total rides created"})
	RidesAssigned   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "medride", Name: "rides_assigned_total", Help: "Total successful driver assignments"})
	AssignConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: "medride", Name: "assign_conflicts_total", Help: "Assignment attempts rejected by the status precondition"})
	TrackingSamples = promauto.NewCounter(prometheus.CounterOpts{Namespace: "medride", Name: "tracking_samples_total", Help: "Tracking samples accepted"})
	WebhookEvents   = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "medride", Name: "payment_webhook_events_total", Help: "Payment provider webhook events by outcome"},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "medride", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medride",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
