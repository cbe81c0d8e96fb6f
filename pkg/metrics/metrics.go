package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cultach_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// Registrations counts account registrations by outcome (created|rejected).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cultach_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"result"},
	)

	// EventCacheLookups counts event listing cache reads by outcome (hit|miss).
	EventCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cultach_event_cache_lookups_total",
			Help: "Event listing cache lookups",
		},
		[]string{"result"},
	)

	// MailDeliveries counts outbound mail attempts by result (sent|failed).
	MailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cultach_mail_deliveries_total",
			Help: "Total number of outbound email deliveries",
		},
		[]string{"result"},
	)

	// ImageUploads counts object storage uploads by result (stored|rejected|failed).
	ImageUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cultach_image_uploads_total",
			Help: "Total number of image upload attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cultach_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
