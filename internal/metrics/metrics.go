package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Queries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusecho_queries_total",
			Help: "Total number of processed utterances by intent",
		},
		[]string{"intent"},
	)

	ClassificationStage = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusecho_classification_stage_total",
			Help: "Classifier decisions by the stage that produced them",
		},
		[]string{"stage"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusecho_cache_lookups_total",
			Help: "Response cache lookups by result (hit, miss, bypass, error)",
		},
		[]string{"result"},
	)

	HandlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusecho_handler_failures_total",
			Help: "Handler errors converted to the fallback reply",
		},
		[]string{"intent", "code"},
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusecho_handler_duration_seconds",
			Help:    "Handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"intent"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusecho_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "campusecho_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusecho_active_sessions",
			Help: "Number of conversation sessions held in memory",
		},
	)

	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusecho_reminders_total",
			Help: "Reminders emitted by kind (task, deadline)",
		},
		[]string{"kind"},
	)
)
