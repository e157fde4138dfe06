package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served requests by route pattern and status code
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "incident_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AuthFailures counts rejected requests by failure kind (missing, expired, unknown_manager, ...)
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_auth_failures_total",
		Help: "Total authentication and authorization failures by reason",
	}, []string{"reason"})

	IncidentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_reports_created_total",
		Help: "Total incident reports created by type and target",
	}, []string{"type", "target"})

	GuardianNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_guardian_notifications_total",
		Help: "Guardian mail hand-offs by outcome",
	}, []string{"outcome"})

	// BreakerState mirrors gobreaker states: 0 closed, 1 half-open, 2 open
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "incident_circuit_breaker_state",
		Help: "Circuit breaker state by dependency",
	}, []string{"name"})

	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_outbox_events_published_total",
		Help: "Outbox events relayed to the broker by result",
	}, []string{"result"})
)
