// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Fetch metrics
	FetchRequests *prometheus.CounterVec
	FetchRetries  *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec

	// Ingestion metrics
	SnapshotsIngested *prometheus.CounterVec
	PricesStored      *prometheus.CounterVec
	CharactersStored  *prometheus.CounterVec
	RecordsSkipped    *prometheus.CounterVec
	JobRetries        *prometheus.CounterVec
	DeadLetters       *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec

	// Retention metrics
	SweepDeletedRows    *prometheus.CounterVec
	SweepTrendPoints    *prometheus.CounterVec
	SweepErrors         *prometheus.CounterVec
	SweepDuration       prometheus.Histogram
	LastSuccessfulSweep prometheus.Gauge

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pathofmirrors"
	}

	return &Metrics{
		FetchRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Total number of upstream fetch requests",
		}, []string{"source"}),
		FetchRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Total number of upstream fetch retries",
		}, []string{"source"}),
		FetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "failures_total",
			Help:      "Total number of upstream fetches that exhausted retries",
		}, []string{"source", "kind"}),

		SnapshotsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "snapshots_total",
			Help:      "Total number of snapshots committed",
		}, []string{"game", "category"}),
		PricesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "price_rows_total",
			Help:      "Total number of price snapshot rows stored",
		}, []string{"game"}),
		CharactersStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "character_rows_total",
			Help:      "Total number of character snapshot rows stored",
		}, []string{"game"}),
		RecordsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_skipped_total",
			Help:      "Total number of source records skipped due to schema mismatch",
		}, []string{"game", "source"}),
		JobRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "job_retries_total",
			Help:      "Total number of ingestion job retries",
		}, []string{"game", "category"}),
		DeadLetters: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "dead_letters_total",
			Help:      "Total number of jobs that failed terminally",
		}, []string{"game", "category"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "job_duration_seconds",
			Help:      "Duration of ingestion jobs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"game", "category"}),

		SweepDeletedRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "deleted_rows_total",
			Help:      "Total number of expired snapshot rows deleted",
		}, []string{"game"}),
		SweepTrendPoints: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "trend_points_total",
			Help:      "Total number of trend points recomputed",
		}, []string{"game"}),
		SweepErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "sweep_errors_total",
			Help:      "Total number of retention sweep errors",
		}, []string{"game"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of retention sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
		LastSuccessfulSweep: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "last_successful_sweep_timestamp",
			Help:      "Unix timestamp of last successful retention sweep",
		}),

		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful snapshot commit",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
