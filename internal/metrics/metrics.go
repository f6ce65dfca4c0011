package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline metrics
	ProjectsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_projects_processed_total",
			Help: "Total number of processed projects by final status",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipforge_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_stage_duration_seconds",
			Help:    "Per-stage execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"stage"},
	)

	StagesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_stages_failed_total",
			Help: "Total number of failed pipeline stages",
		},
		[]string{"stage"},
	)

	// Worker metrics
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipforge_workers_active",
			Help: "Number of workers currently executing a pipeline",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipforge_queue_depth",
			Help: "Number of projects waiting for a worker",
		},
	)
)

// RecordHTTPRequest updates the request counter and latency histogram.
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
