package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TileRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcore_tile_requests_total",
		Help: "Total number of tile load requests",
	}, []string{"layer"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcore_cache_hits_total",
		Help: "Total number of unexpired cache hits",
	}, []string{"layer"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcore_cache_misses_total",
		Help: "Total number of cache misses, including expired entries",
	}, []string{"layer"})

	CacheStores = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcore_cache_stores_total",
		Help: "Total number of cache store operations",
	}, []string{"layer"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcore_upstream_requests_total",
		Help: "Total number of upstream tile requests",
	}, []string{"layer"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mapcore_upstream_latency_seconds",
		Help:    "Latency of upstream tile fetches in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"layer"})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcore_fetch_failures_total",
		Help: "Total number of failed tile fetches",
	}, []string{"layer"})

	FetchCanceled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcore_fetch_canceled_total",
		Help: "Total number of superseded or canceled tile fetches",
	}, []string{"layer"})

	FetchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mapcore_fetches_in_flight",
		Help: "Number of tile fetches currently running",
	})

	TileSetUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcore_tile_set_updates_total",
		Help: "Total number of tile set recomputations that changed the tile set",
	}, []string{"layer"})

	// Redis metrics
	RedisOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redis_operation_duration_seconds",
		Help:    "Duration of Redis operations in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation"})

	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Total number of Redis errors",
	}, []string{"operation"})
)
