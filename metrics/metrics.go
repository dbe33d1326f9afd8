package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counts completed analyses by overall score tier.
var Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "seo_inspector_analyses_total",
	Help: "Total number of page analyses served",
}, []string{"score_status"})

// Counts pages that could not be retrieved.
var FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "seo_inspector_fetch_failures_total",
	Help: "Total number of upstream page fetches that failed",
})

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seo_inspector_cache_hits_total",
		Help: "Total number of analyses served from cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seo_inspector_cache_misses_total",
		Help: "Total number of analyses that required a fetch",
	})
)

// Time spent fetching and analyzing a page, cache hits excluded.
var AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "seo_inspector_analysis_duration_seconds",
	Help:    "Time taken to fetch and analyze a page",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // From 50ms to ~25s
})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "seo_inspector_http_requests_total",
	Help: "Total number of HTTP requests handled",
}, []string{"method", "path", "status"})
