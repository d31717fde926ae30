package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "poi_ingest"

	MetricFiles         = "files_total"
	MetricRecords       = "records_total"
	MetricBatches       = "batches_total"
	MetricBatchDuration = "batch_duration_seconds"
	MetricImportRuns    = "runs_total"
	MetricHTTPRequests  = "http_requests_total"
	MetricHTTPDuration  = "http_request_duration_seconds"
)

// Исходы обработки записи
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeError   = "error"
)

// Исходы коммита пакета
const (
	BatchCommitted = "committed"
	BatchFallback  = "fallback"
)

var CounterFiles = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricFiles,
		Help:      "Files handled by the importer, by final state.",
	},
	[]string{"state"},
)

var CounterRecords = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRecords,
		Help:      "Records handled by the importer, by source and outcome.",
	},
	[]string{"source", "outcome"},
)

var CounterBatches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricBatches,
		Help:      "Batch commits, split into whole-batch commits and per-record fallbacks.",
	},
	[]string{"result"},
)

var HistogramBatchDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      MetricBatchDuration,
		Help:      "Time spent committing one batch, fallback included.",
		Buckets:   prometheus.DefBuckets,
	},
)

var CounterImportRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricImportRuns,
		Help:      "Import runs, by whether they were stopped early.",
	},
	[]string{"stopped"},
)

var CounterHTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricHTTPRequests,
		Help:      "Query API requests, by method, route and status code.",
	},
	[]string{"method", "route", "status"},
)

var HistogramHTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      MetricHTTPDuration,
		Help:      "Query API latency.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

func init() {
	prometheus.MustRegister(CounterFiles)
	prometheus.MustRegister(CounterRecords)
	prometheus.MustRegister(CounterBatches)
	prometheus.MustRegister(HistogramBatchDuration)
	prometheus.MustRegister(CounterImportRuns)
	prometheus.MustRegister(CounterHTTPRequests)
	prometheus.MustRegister(HistogramHTTPDuration)
}
