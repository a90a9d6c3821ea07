package query

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Queries     *prometheus.CounterVec
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// State queries that had to scan events because the index couldn't resolve the interval.
	Fallbacks     prometheus.Counter
	BuildDuration *prometheus.HistogramVec
}

// NewMetrics creates the query metrics and registers them with reg, unless reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracestore_queries_total",
			Help: "Range queries by kind",
		}, []string{"kind"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracestore_cache_hits_total",
			Help: "Range queries answered from the result cache",
		}, []string{"kind"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracestore_cache_misses_total",
			Help: "Range queries not found in the result cache",
		}, []string{"kind"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracestore_state_index_fallbacks_total",
			Help: "State queries answered by scanning events instead of using the state index",
		}),
		BuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracestore_index_build_duration_seconds",
			Help:    "Time spent building a single index",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"index"}),
	}
	if reg != nil {
		reg.MustRegister(m.Queries, m.CacheHits, m.CacheMisses, m.Fallbacks, m.BuildDuration)
	}
	return m
}
