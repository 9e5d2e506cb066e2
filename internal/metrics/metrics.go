package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks requests per provider and outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diligence_requests_total",
			Help: "Total number of data requests",
		},
		[]string{"provider", "outcome"},
	)

	// UpstreamErrorsTotal tracks classified upstream errors per provider
	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diligence_upstream_errors_total",
			Help: "Total number of classified upstream errors",
		},
		[]string{"provider", "kind"},
	)

	// RequestLatency tracks end-to-end request latency
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diligence_request_latency_seconds",
			Help:    "End-to-end request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// CacheHitsTotal tracks cache hits
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "diligence_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMissesTotal tracks cache misses
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "diligence_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// QueueDepth tracks pending calls per provider
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "diligence_queue_depth",
			Help: "Pending rate-limited calls per provider",
		},
		[]string{"provider"},
	)

	// FallbacksTotal tracks fallback activations per primary provider
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diligence_fallbacks_total",
			Help: "Total number of fallback provider activations",
		},
		[]string{"from", "to"},
	)
)
