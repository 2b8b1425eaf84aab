package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metric vectors, registered on the default registry the HTTP
// adapter's /metrics route already serves. Package-level because the HTTP
// middleware, the sync coordinator, and the query pipeline all record into
// the same family.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawl4ai_http_requests_total",
		Help: "HTTP requests by method, route, and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crawl4ai_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by method and route.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"method", "route"})

	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawl4ai_sync_runs_total",
		Help: "Completed sync runs by terminal state.",
	}, []string{"state"})

	SyncFilesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawl4ai_sync_files_processed_total",
		Help: "Files chunked and embedded across all sync runs.",
	})

	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawl4ai_searches_total",
		Help: "Vector searches by whether LLM query expansion ran.",
	}, []string{"expansion_used"})

	RAGQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawl4ai_rag_queries_total",
		Help: "RAG queries by whether the answer degraded to retrieval-only.",
	}, []string{"degraded"})
)
