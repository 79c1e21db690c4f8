// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediavault"

var (
	// CacheOperationsTotal tracks snapshot cache reads.
	// Labels:
	//   - domain: ratings, views, tags, favorites, videos
	//   - status: hit, miss, error
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of snapshot cache reads",
		},
		[]string{"domain", "status"},
	)

	// DBOperationsTotal tracks durable-store operations through the gateway.
	// Labels:
	//   - operation: read, write
	//   - backend: primary, fallback
	DBOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_operations_total",
			Help:      "Total number of durable-store operations",
		},
		[]string{"operation", "backend"},
	)

	// SingleflightRequestsTotal tracks cache refresh coalescing.
	// Labels:
	//   - result: initiated (new refresh), shared (reused in-flight result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight cache refreshes",
		},
		[]string{"result"},
	)

	// ThumbnailJobsTotal tracks background thumbnail generation outcomes.
	// Labels:
	//   - status: queued, generated, failed, skipped
	ThumbnailJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnail_jobs_total",
			Help:      "Total number of thumbnail generation jobs",
		},
		[]string{"status"},
	)
)

// Cache read status constants.
const (
	CacheStatusHit   = "hit"
	CacheStatusMiss  = "miss"
	CacheStatusError = "error"
)

// Durable-store operation constants.
const (
	DBOpRead  = "read"
	DBOpWrite = "write"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Thumbnail job status constants.
const (
	ThumbnailQueued    = "queued"
	ThumbnailGenerated = "generated"
	ThumbnailFailed    = "failed"
	ThumbnailSkipped   = "skipped"
)
