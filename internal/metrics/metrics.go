// Package metrics provides Prometheus metrics for the codeview scan pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Walker metrics
	entriesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeview_scan_entries_total",
			Help: "Total number of entries produced by the walker",
		},
		[]string{"kind"},
	)

	scanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codeview_scan_errors_total",
			Help: "Total number of per-entry and per-walk errors forwarded by the relay",
		},
	)

	// Relay metrics
	batchesFlushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeview_relay_batches_total",
			Help: "Total number of discovery batches flushed by the relay",
		},
		[]string{"trigger"},
	)

	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codeview_relay_batch_size",
			Help:    "Number of entries per flushed batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)

	// Scan lifecycle metrics
	scansActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeview_scans_active",
			Help: "Number of scans currently running",
		},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeview_scan_duration_seconds",
			Help:    "Wall time from scan start to the Finished marker",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// Line statistics cache
	lineStatsLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeview_line_stats_cache_lookups_total",
			Help: "Line statistics cache lookups",
		},
		[]string{"result"},
	)

	// Tree metrics
	orphansDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codeview_tree_orphans_dropped_total",
			Help: "Nodes discarded because their parent never arrived",
		},
	)

	treeNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeview_tree_nodes",
			Help: "Number of nodes in the most recently assembled tree",
		},
	)
)

// Batch flush triggers.
const (
	TriggerSize  = "size"
	TriggerTimer = "timer"
	TriggerDrain = "drain"
)

// RecordEntry counts one entry produced by the walker.
func RecordEntry(isDir bool) {
	kind := "file"
	if isDir {
		kind = "dir"
	}
	entriesDiscovered.WithLabelValues(kind).Inc()
}

// RecordScanError counts one forwarded error.
func RecordScanError() {
	scanErrors.Inc()
}

// RecordBatch records a flushed batch and what caused the flush.
func RecordBatch(size int, trigger string) {
	batchesFlushed.WithLabelValues(trigger).Inc()
	batchSize.Observe(float64(size))
}

// ScanStarted marks a scan as running.
func ScanStarted() {
	scansActive.Inc()
}

// ScanFinished records scan completion.
func ScanFinished(duration time.Duration, cancelled bool) {
	scansActive.Dec()
	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	}
	scanDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordCacheLookup records a line statistics cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	lineStatsLookups.WithLabelValues(result).Inc()
}

// RecordOrphansDropped adds n discarded orphans.
func RecordOrphansDropped(n int) {
	if n > 0 {
		orphansDropped.Add(float64(n))
	}
}

// SetTreeNodes sets the node count of the last assembled tree.
func SetTreeNodes(n int) {
	treeNodes.Set(float64(n))
}

// WriteTextfile dumps all registered metrics in the Prometheus text format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
