package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
	}

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameruncle_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"method", "path", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gameruncle_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"path"},
	)

	CriteriaCacheHits = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameruncle_criteria_cache_hits_total",
			Help: "Criteria cache hits by tier",
		},
		[]string{"tier"},
	)

	CriteriaCacheMisses = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "gameruncle_criteria_cache_misses_total",
			Help: "Criteria cache misses",
		},
	)

	RateLimitDecisions = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameruncle_rate_limit_decisions_total",
			Help: "Rate limiter decisions by outcome",
		},
		[]string{"outcome"},
	)
)

func Initialize() {
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}
