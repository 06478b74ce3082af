package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_server_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcode_server_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcode_server_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Transcode job metrics (server path)
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_server_jobs_total",
			Help: "Total number of transcode jobs by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcode_server_job_duration_seconds",
			Help:    "Wall-clock duration of transcode jobs",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcode_server_jobs_in_flight",
			Help: "Number of transcode jobs currently running",
		},
	)

	CompressionRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "transcode_server_compression_ratio_percent",
			Help: "Compression ratio of finished renditions, percent (negative means the rendition grew)",
			// Negative bucket captures renditions larger than their source.
			Buckets: []float64{-50, 0, 10, 20, 30, 40, 50, 60, 70, 80, 90},
		},
		[]string{"kind"},
	)

	BytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcode_server_bytes_downloaded_total",
			Help: "Source bytes downloaded from object storage",
		},
	)

	BytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcode_server_bytes_uploaded_total",
			Help: "Rendition bytes uploaded to object storage",
		},
	)
)

// Bounded pipeline metrics (client-style path)
var (
	PipelineResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_server_pipeline_results_total",
			Help: "Bounded pipeline outcomes by strategy or error kind",
		},
		[]string{"outcome"},
	)

	PipelineLadderAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcode_server_pipeline_ladder_attempts",
			Help:    "Quality rungs attempted per bounded pipeline job",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)
)

// InitializeMetrics pre-populates expected label combinations so every
// metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, kind := range []string{"video", "image"} {
		for _, status := range []string{"success", "failure"} {
			JobsTotal.WithLabelValues(kind, status)
		}
		JobDuration.WithLabelValues(kind)
		CompressionRatio.WithLabelValues(kind)
	}

	for _, outcome := range []string{
		"jpeg_passthrough", "webp_local", "webm_server",
		"processing_timeout", "canvas_limit", "decode_failure",
		"client_budget_exceeded", "wasm_oom", "container_corrupt",
		"decode_unsupported", "all_quality_levels_failed",
		"unknown_processing_error",
	} {
		PipelineResults.WithLabelValues(outcome)
	}
}
