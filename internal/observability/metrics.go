// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal         *prometheus.CounterVec
	AnalysisCacheHits     prometheus.Counter
	AnalysisCacheMisses   prometheus.Counter
	AnalysisDuration      prometheus.Histogram
	DegradedScorings      prometheus.Counter
	RiskLevelsAssigned    *prometheus.CounterVec

	// Model metrics
	ModelCallsTotal     *prometheus.CounterVec
	ModelFallbacksTotal prometheus.Counter
	ModelCacheHits      prometheus.Counter
	ModelCallDuration   prometheus.Histogram

	// Monitoring metrics
	ActiveSubscriptions    prometheus.Gauge
	TransactionsObserved   prometheus.Counter
	SignificantTransactions prometheus.Counter
	SoftInvalidations      prometheus.Counter

	// Event bus metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   prometheus.Counter

	// Latency metrics
	RPCCallLatency  *prometheus.HistogramVec
	APICallLatency  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAnalysis prometheus.Gauge
	UptimeSeconds          prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_sentinel"
	}

	return &Metrics{
		// Analysis metrics
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "completed_total",
			Help:      "Total number of completed analyses by trigger",
		}, []string{"trigger"}),
		AnalysisCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "cache_hits_total",
			Help:      "Total number of composite analysis cache hits",
		}),
		AnalysisCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "cache_misses_total",
			Help:      "Total number of composite analysis cache misses",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Full analysis pipeline duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DegradedScorings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "degraded_scorings_total",
			Help:      "Total number of analyses where heuristic scoring failed",
		}),
		RiskLevelsAssigned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "risk_levels_total",
			Help:      "Total number of analyses by assigned risk level",
		}, []string{"level"}),

		// Model metrics
		ModelCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "calls_total",
			Help:      "Total number of model completion attempts by status",
		}, []string{"status"}),
		ModelFallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "fallbacks_total",
			Help:      "Total number of judgments served from the fallback verdict",
		}),
		ModelCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "cache_hits_total",
			Help:      "Total number of judgment cache hits",
		}),
		ModelCallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Model completion call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30},
		}),

		// Monitoring metrics
		ActiveSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "active_subscriptions",
			Help:      "Number of token accounts currently monitored",
		}),
		TransactionsObserved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "transactions_observed_total",
			Help:      "Total number of transactions observed on monitored accounts",
		}),
		SignificantTransactions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "significant_transactions_total",
			Help:      "Total number of transactions that triggered reassessment",
		}),
		SoftInvalidations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "soft_invalidations_total",
			Help:      "Total number of cache entries back-dated by minor activity",
		}),

		// Event bus metrics
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published by type",
		}, []string{"type"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of events dropped on full subscriber channels",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		APICallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "helius",
			Name:      "api_call_latency_seconds",
			Help:      "Enriched API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulAnalysis: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful analysis",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAnalysis records a completed analysis.
func RecordAnalysis(trigger, level string, durationSeconds float64) {
	DefaultMetrics.AnalysesTotal.WithLabelValues(trigger).Inc()
	DefaultMetrics.RiskLevelsAssigned.WithLabelValues(level).Inc()
	DefaultMetrics.AnalysisDuration.Observe(durationSeconds)
	DefaultMetrics.LastSuccessfulAnalysis.SetToCurrentTime()
}

// RecordCacheLookup records a composite cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		DefaultMetrics.AnalysisCacheHits.Inc()
	} else {
		DefaultMetrics.AnalysisCacheMisses.Inc()
	}
}

// RecordModelCall records a model completion attempt.
func RecordModelCall(status string, seconds float64) {
	DefaultMetrics.ModelCallsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ModelCallDuration.Observe(seconds)
}

// RecordModelFallback increments the heuristic fallback counter.
func RecordModelFallback() {
	DefaultMetrics.ModelFallbacksTotal.Inc()
}

// UpdateActiveSubscriptions updates the monitored account gauge.
func UpdateActiveSubscriptions(n int) {
	DefaultMetrics.ActiveSubscriptions.Set(float64(n))
}

// RecordTransactionObserved records an observed transaction.
func RecordTransactionObserved(significant bool) {
	DefaultMetrics.TransactionsObserved.Inc()
	if significant {
		DefaultMetrics.SignificantTransactions.Inc()
	}
}

// RecordSoftInvalidation increments the back-dating counter.
func RecordSoftInvalidation() {
	DefaultMetrics.SoftInvalidations.Inc()
}

// RecordEventPublished records a bus publication.
func RecordEventPublished(eventType string) {
	DefaultMetrics.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
