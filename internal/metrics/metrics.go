// Package metrics holds the Prometheus collectors of the search service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "semsearch"

// Oracle call outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeCallError  = "call_error"
	OutcomeParseError = "parse_error"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OracleCallsTotal    *prometheus.CounterVec
	OracleCallDuration  prometheus.Histogram
	SearchDuration      *prometheus.HistogramVec
	SearchFailuresTotal *prometheus.CounterVec
	EmbeddingCacheTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OracleCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_calls_total",
				Help:      "Rerank oracle calls by outcome",
			},
			[]string{"outcome"},
		),
		OracleCallDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "oracle_call_duration_seconds",
				Help:      "Rerank oracle call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "End-to-end search latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"reranked"},
		),
		SearchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_failures_total",
				Help:      "Search requests that failed by stage",
			},
			[]string{"stage"},
		),
		EmbeddingCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_cache_total",
				Help:      "Query embedding cache hits and misses",
			},
			[]string{"result"}, // "hit" / "miss"
		),
	}

	reg.MustRegister(
		m.OracleCallsTotal,
		m.OracleCallDuration,
		m.SearchDuration,
		m.SearchFailuresTotal,
		m.EmbeddingCacheTotal,
	)

	return m
}

// ObserveOracleCall records one oracle call.
func (m *Metrics) ObserveOracleCall(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.OracleCallsTotal.WithLabelValues(outcome).Inc()
	m.OracleCallDuration.Observe(d.Seconds())
}

// ObserveSearch records one completed search.
func (m *Metrics) ObserveSearch(reranked bool, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.WithLabelValues(strconv.FormatBool(reranked)).Observe(d.Seconds())
}

// IncSearchFailure counts a failed search by stage ("embed", "retrieve").
func (m *Metrics) IncSearchFailure(stage string) {
	if m == nil {
		return
	}
	m.SearchFailuresTotal.WithLabelValues(stage).Inc()
}

// EmbeddingCache returns the cache counter, or nil when m is nil.
func (m *Metrics) EmbeddingCache() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.EmbeddingCacheTotal
}
