package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PrecacheTiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_precache_tiles_total",
		Help: "Tiles processed by the precache run, by result (fetched, present, failed)",
	}, []string{"result"})

	PrecacheAssets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_precache_static_assets_total",
		Help: "Static assets stored during install",
	})

	PrecacheProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offline_precache_progress_percent",
		Help: "Last progress value published by the precache run",
	})

	InterceptedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_intercepted_requests_total",
		Help: "Requests answered by the interceptor, by category and response source",
	}, []string{"category", "source"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "offline_upstream_latency_seconds",
		Help:    "Latency of upstream fetches in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	CacheOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "offline_cache_operation_duration_seconds",
		Help:    "Duration of cache store operations in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"backend", "operation"})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_cache_errors_total",
		Help: "Total number of cache store errors",
	}, []string{"backend", "operation"})

	CacheVersionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_cache_versions_deleted_total",
		Help: "Stale cache versions removed on activation",
	})
)
