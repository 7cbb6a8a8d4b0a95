package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the automation worker

var (
	// Scrape call metrics
	ScrapeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_scrape_calls_total",
			Help: "Total number of scrape calls by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	ScrapeCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afl_scrape_call_duration_seconds",
			Help:    "Duration of scrape calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Predictor call metrics
	PredictorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_predictor_calls_total",
			Help: "Total number of inference calls by status",
		},
		[]string{"status"},
	)

	PredictorCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "afl_predictor_call_duration_seconds",
			Help:    "Duration of inference calls in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Job metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_job_runs_total",
			Help: "Total number of job executions by job id and outcome",
		},
		[]string{"job", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afl_job_duration_seconds",
			Help:    "Duration of job executions in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"job"},
	)

	JobRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_job_rejections_total",
			Help: "Manual triggers rejected because the job was already running",
		},
		[]string{"job"},
	)

	// Ingestion metrics
	GamesInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_games_ingested_total",
			Help: "Total number of game rows written by ingestion",
		},
		[]string{"kind"}, // inserted|updated
	)

	IngestRecordFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_ingest_record_failures_total",
			Help: "Ingestion records that failed after retries",
		},
		[]string{"class"}, // transient|fatal
	)

	// Tip generation metrics
	PredictionsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "afl_predictions_generated_total",
			Help: "Total number of predictions persisted",
		},
	)

	PredictionsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_predictions_skipped_total",
			Help: "Games skipped during tip generation",
		},
		[]string{"reason"},
	)

	// Accuracy metrics
	PredictionsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "afl_predictions_resolved_total",
			Help: "Predictions scored against final results",
		},
	)

	SnapshotAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "afl_snapshot_accuracy_pct",
			Help: "Latest accuracy percentage per snapshot period",
		},
		[]string{"period"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"kind"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afl_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"kind"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "afl_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "afl_scheduler_running",
			Help: "1 when the scheduler loop is running",
		},
	)
)

// RecordJobRun records one job execution
func RecordJobRun(job, outcome string, duration time.Duration) {
	JobRunsTotal.WithLabelValues(job, outcome).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit
func RecordCacheHit(kind string) {
	CacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(kind string) {
	CacheMissesTotal.WithLabelValues(kind).Inc()
}
