// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "streamresolve"

var (
	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - cache: metadata, resolution
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	//   - cache_type: memory, redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"cache", "operation", "status", "cache_type"},
	)

	// MetadataRequestsTotal tracks calls to the external metadata service.
	// Labels:
	//   - media_type: movie, series
	//   - status: success, error
	MetadataRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_requests_total",
			Help:      "Total number of metadata service requests",
		},
		[]string{"media_type", "status"},
	)

	// ResolutionsTotal tracks pipeline outcomes.
	// Labels:
	//   - outcome: resolved, or an error kind
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of search-and-resolve runs by outcome",
		},
		[]string{"outcome"},
	)

	// ResolutionDuration observes the wall time of search-and-resolve runs.
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Duration of search-and-resolve runs",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
	)

	// CandidatesEvaluatedTotal tracks search results evaluated by the matcher.
	// Labels:
	//   - verdict: MATCHED, REJECTED
	CandidatesEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_evaluated_total",
			Help:      "Total number of search candidates evaluated",
		},
		[]string{"verdict"},
	)

	// DownloadFetchAttemptsTotal tracks in-page download payload fetches.
	// Labels:
	//   - status: success, error
	DownloadFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_fetch_attempts_total",
			Help:      "Total number of download payload fetch attempts",
		},
		[]string{"status"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal tracks served HTTP requests.
	// Labels:
	//   - route: chi route pattern
	//   - method: HTTP method
	//   - status: response status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
)

// Cache name constants.
const (
	CacheMetadata   = "metadata"
	CacheResolution = "resolution"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// Request status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// OutcomeResolved labels a successful resolution.
const OutcomeResolved = "resolved"

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// RecordCacheOp increments CacheOperationsTotal.
func RecordCacheOp(cache, op, status, cacheType string) {
	CacheOperationsTotal.WithLabelValues(cache, op, status, cacheType).Inc()
}
