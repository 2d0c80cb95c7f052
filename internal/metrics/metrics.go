package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 检索引擎Prometheus指标
var (
	// DocumentsIndexed 已入库文档计数
	DocumentsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_documents_indexed_total",
			Help: "Total number of documents indexed",
		},
		[]string{"tenant_id"},
	)

	// ChunksIndexed 已入库块计数
	ChunksIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_chunks_indexed_total",
			Help: "Total number of chunks indexed",
		},
		[]string{"tenant_id"},
	)

	// DocumentsDeleted 删除文档计数
	DocumentsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_documents_deleted_total",
			Help: "Total number of documents deleted",
		},
		[]string{"tenant_id"},
	)

	// Queries 检索请求计数，按结果分类
	Queries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_queries_total",
			Help: "Total number of retrieval queries",
		},
		[]string{"tenant_id", "status"},
	)

	// QueryDuration 检索耗时分布
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_query_duration_seconds",
			Help:    "Retrieval query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant_id"},
	)

	// IngestDuration 文档入库耗时分布
	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_ingest_duration_seconds",
			Help:    "Document ingestion latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"tenant_id"},
	)

	// EmbeddingRequests 向量化请求计数
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_embedding_requests_total",
			Help: "Total number of embedding batch requests",
		},
		[]string{"status"},
	)

	// IndexState 向量索引当前状态 (0=unavailable, 1=degraded, 2=ready)
	IndexState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rag_index_state",
			Help: "Current vector index state (0=unavailable, 1=degraded, 2=ready)",
		},
	)

	// CacheHits 查询缓存命中计数
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_query_cache_total",
			Help: "Query cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)
