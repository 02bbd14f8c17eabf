// Package observability exports the dashboard's computation metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	snapshotGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Subsystem: "analytics",
		Name:      "last_weekly_snapshot_timestamp_seconds",
		Help:      "Unix timestamp of the most recent weekly snapshot computation.",
	})
	insufficientHistoryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "analytics",
		Name:      "insufficient_history_total",
		Help:      "Weekly snapshots computed without a preceding week to compare against.",
	})
	outlierRowsRemoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "analytics",
		Name:      "outlier_rows_removed_total",
		Help:      "Rows dropped by the outlier filter, labeled by column and mode.",
	}, []string{"column", "mode"})
	datasetRowsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Subsystem: "source",
		Name:      "dataset_rows",
		Help:      "Number of activity records in the most recently loaded dataset.",
	})
)

func init() {
	prometheus.MustRegister(snapshotGauge, insufficientHistoryCounter, outlierRowsRemoved, datasetRowsGauge)
}

// RecordWeeklySnapshot updates the snapshot watermark and history counter.
func RecordWeeklySnapshot(ts time.Time, hasPrevious bool) {
	if !ts.IsZero() {
		snapshotGauge.Set(float64(ts.Unix()))
	}
	if !hasPrevious {
		insufficientHistoryCounter.Inc()
	}
}

// RecordOutliersRemoved adds the dropped row count for column. An empty groupBy is global mode.
func RecordOutliersRemoved(column, groupBy string, removed int) {
	if removed <= 0 {
		return
	}
	mode := "global"
	if groupBy != "" {
		mode = "grouped"
	}
	outlierRowsRemoved.WithLabelValues(column, mode).Add(float64(removed))
}

// RecordDatasetSize tracks the size of the last dataset handed to the analytics layer.
func RecordDatasetSize(rows int) {
	datasetRowsGauge.Set(float64(rows))
}
