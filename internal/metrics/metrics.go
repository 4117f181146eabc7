package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ownership verification counters and histograms, partitioned by category
// (wearables, names, third-party) or by network for chain calls.

var (
	// Verdict cache
	VerdictCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "verdict_cache",
		Name:      "hits_total",
		Help:      "Claimed items resolved from cached verdicts",
	}, []string{"category"})

	VerdictCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "verdict_cache",
		Name:      "misses_total",
		Help:      "Claimed items sent to verification",
	}, []string{"category"})

	VerdictCacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "verdict_cache",
		Name:      "writes_total",
		Help:      "Per-address verdict maps written after a verification round",
	}, []string{"category"})

	// Subgraph verifier
	ShardQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "subgraph",
		Name:      "shard_queries_total",
		Help:      "Total shard queries issued to the indexer",
	}, []string{"category"})

	ShardQueryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "subgraph",
		Name:      "shard_query_failures_total",
		Help:      "Shard queries that failed after retries",
	}, []string{"category"})

	ShardQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ownership",
		Subsystem: "subgraph",
		Name:      "shard_query_duration_seconds",
		Help:      "Shard query duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"category"})

	FailOpenAddresses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "subgraph",
		Name:      "fail_open_addresses_total",
		Help:      "Addresses whose claims were assumed owned because their shard failed",
	}, []string{"category"})

	// Ownership index fallback
	FallbackComparisons = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "fallback",
		Name:      "comparisons_total",
		Help:      "Cross-checks against the ownership index, by outcome",
	}, []string{"category", "outcome"})

	FallbackMismatchedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "fallback",
		Name:      "mismatched_items_total",
		Help:      "Items whose ownership differs between subgraph and ownership index",
	}, []string{"category"})

	// Reconciliation
	ReconcileLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ownership",
		Subsystem: "reconciler",
		Name:      "reconcile_duration_seconds",
		Help:      "End-to-end reconcile duration",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"category"})

	ReconcileItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "reconciler",
		Name:      "items_total",
		Help:      "Reconciled claimed items by verdict",
	}, []string{"category", "verdict"})

	// JSON-RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "JSON-RPC HTTP round-trips by status class",
	}, []string{"network", "method", "status"})

	RPCBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ownership",
		Subsystem: "rpc",
		Name:      "batch_size",
		Help:      "Number of calls per JSON-RPC batch",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
	}, []string{"network"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total times RPC calls waited for the rate limiter",
	}, []string{"network"})

	// Contract classification
	ContractClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "contracts",
		Name:      "classifications_total",
		Help:      "Contract classification probes by resulting type",
	}, []string{"network", "type"})

	// On-chain checker
	OnChainVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "onchain",
		Name:      "verdicts_total",
		Help:      "Linked item verdicts by deciding step",
	}, []string{"source", "owned"})

	OnChainUnavailable = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "onchain",
		Name:      "unavailable_total",
		Help:      "Linked item checks that could not complete",
	})

	// Third-party resolver
	ResolverRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "resolver",
		Name:      "requests_total",
		Help:      "Third-party resolver page requests by status",
	}, []string{"status"})

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ownership",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"target"})

	// Admin API
	AdminRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ownership",
		Subsystem: "admin",
		Name:      "rate_limited_total",
		Help:      "Admin API requests rejected by the per-IP rate limiter",
	}, []string{"route"})

	// Contract classification store
	DBPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ownership",
		Subsystem: "db_pool",
		Name:      "open_connections",
		Help:      "Open connections in the postgres pool",
	})

	DBPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ownership",
		Subsystem: "db_pool",
		Name:      "in_use",
		Help:      "Connections currently in use",
	})

	DBPoolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ownership",
		Subsystem: "db_pool",
		Name:      "wait_count",
		Help:      "Total waits for a free connection",
	})
)
