package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Search request metrics
	SearchesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scour_searches_started_total",
			Help: "Total number of agent searches started",
		},
		[]string{"search_strategy", "query_strategy"},
	)

	SearchesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scour_searches_completed_total",
			Help: "Total number of agent searches completed",
		},
		[]string{"search_strategy", "status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scour_search_duration_seconds",
			Help:    "Agent search duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"search_strategy"},
	)

	// Visit task metrics
	VisitsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scour_visits_started_total",
			Help: "Total number of page visits started",
		},
	)

	VisitsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scour_visits_completed_total",
			Help: "Total number of page visits reaching a terminal state",
		},
		[]string{"state"},
	)

	VisitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scour_visit_duration_seconds",
			Help:    "Page fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Backend metrics
	SearchBackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scour_search_backend_requests_total",
			Help: "Total requests to the search backend",
		},
		[]string{"status"},
	)

	OracleRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scour_oracle_requests_total",
			Help: "Total oracle decision requests",
		},
		[]string{"operation", "status"},
	)

	OracleRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scour_oracle_request_duration_seconds",
			Help:    "Oracle decision request duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// Page cache metrics
	PageCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scour_page_cache_hits_total",
			Help: "Total page fetches served from the Redis cache",
		},
	)

	PageCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scour_page_cache_misses_total",
			Help: "Total page fetches that went to the network",
		},
	)
)
