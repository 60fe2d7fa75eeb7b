// Package metrics provides Prometheus metrics for the prediction pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Search metrics
	SearchesIssued  *prometheus.CounterVec
	SearchCacheHits prometheus.Counter
	ChunksFetched   *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	MergedHits      *prometheus.HistogramVec

	// Inference metrics
	ModelRuns         *prometheus.CounterVec
	ModelRunDuration  *prometheus.HistogramVec
	RankingConfidence *prometheus.GaugeVec

	// Artifact metrics
	ArtifactBytes *prometheus.CounterVec

	// Error metrics
	SearchErrors    *prometheus.CounterVec
	InferenceErrors *prometheus.CounterVec
	ArtifactErrors  prometheus.Counter
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "foldpipe"
	}

	m := &Metrics{
		SearchesIssued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_issued_total",
				Help:      "Total number of alignment searches issued against remote databases",
			},
			[]string{"database"},
		),
		SearchCacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_cache_hits_total",
				Help:      "Total number of searches satisfied from the per-sequence cache",
			},
		),
		ChunksFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_fetched_total",
				Help:      "Total number of streamed database chunks fetched and searched",
			},
			[]string{"database"},
		),
		SearchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Time to run the full chunked search against one database",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
			},
			[]string{"database"},
		),
		MergedHits: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "merged_hits",
				Help:      "Number of hits after per-database merge and dedup",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260k
			},
			[]string{"database"},
		),
		ModelRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_runs_total",
				Help:      "Total number of inference runs",
			},
			[]string{"model"},
		),
		ModelRunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_run_duration_seconds",
				Help:      "Time to run one model configuration",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"model"},
		),
		RankingConfidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ranking_confidence",
				Help:      "Ranking confidence of the last completed run per model",
			},
			[]string{"model"},
		),
		ArtifactBytes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifact_bytes_total",
				Help:      "Bytes written per artifact kind",
			},
			[]string{"kind"},
		),
		SearchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_errors_total",
				Help:      "Total number of search failures",
			},
			[]string{"database"},
		),
		InferenceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inference_errors_total",
				Help:      "Total number of inference failures",
			},
			[]string{"model"},
		),
		ArtifactErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifact_errors_total",
				Help:      "Total number of artifact write failures",
			},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}
