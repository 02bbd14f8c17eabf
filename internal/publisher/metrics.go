package publisher

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "publisher",
		Name:      "snapshots_published_total",
		Help:      "Number of weekly snapshots written to Kafka.",
	})

	unchangedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "publisher",
		Name:      "snapshots_unchanged_total",
		Help:      "Polls that produced the same snapshot as the last publish.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "publisher",
		Name:      "publish_failures_total",
		Help:      "Snapshot computations or deliveries that failed.",
	})

	retryScheduledCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "publisher",
		Name:      "retry_scheduled_total",
		Help:      "Number of times a failed publish was deferred with backoff.",
	})

	pollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Subsystem: "publisher",
		Name:      "poll_duration_seconds",
		Help:      "Time spent computing and delivering one snapshot poll.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(publishedCounter, unchangedCounter, failedCounter, retryScheduledCounter, pollDuration)
}
