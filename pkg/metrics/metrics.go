// Package metrics 定义了服务暴露的 Prometheus 指标。
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "socialfeed"

var (
	// SearchRequestsTotal 按返回模式（local / fallback）统计搜索请求。
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of semantic search responses by mode",
		},
		[]string{"mode"},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Search result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	CandidateEmbeddingFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_embedding_failures_total",
			Help:      "Candidates dropped from ranking because their embedding failed",
		},
	)

	EmbeddingWritebackFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_writeback_failures_total",
			Help:      "Failed best-effort writes of refreshed post embeddings",
		},
	)

	ExternalLookupFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_lookup_failures_total",
			Help:      "Failed external fallback lookups",
		},
	)

	SearchCacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_errors_total",
			Help:      "Search cache backend errors by operation (get, set, decode, encode)",
		},
		[]string{"op"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchCacheTotal,
		CandidateEmbeddingFailuresTotal,
		EmbeddingWritebackFailuresTotal,
		ExternalLookupFailuresTotal,
		SearchCacheErrorsTotal,
		HTTPRequestDuration,
	)
}
