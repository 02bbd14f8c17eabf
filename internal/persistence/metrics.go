package persistence

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "source",
		Name:      "cache_hits_total",
		Help:      "Dataset requests served from the in-memory cache.",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "source",
		Name:      "cache_misses_total",
		Help:      "Dataset requests that required a load from the upstream store.",
	})

	cacheInvalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "source",
		Name:      "cache_invalidations_total",
		Help:      "Explicit cache invalidations (refresh requests and activity events).",
	})

	loadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "source",
		Name:      "load_errors_total",
		Help:      "Failed dataset loads from the upstream store.",
	})

	loadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Subsystem: "source",
		Name:      "load_duration_seconds",
		Help:      "Time spent loading the activity dataset from the upstream store.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Subsystem: "source",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per source (0 closed, 1 half-open, 2 open).",
	}, []string{"name"})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheInvalidations, loadErrors, loadDuration, breakerState)
}
