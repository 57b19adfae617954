package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Orchestrator metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Upstream call counters
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "upstream_requests_total",
			Help:      "Total upstream LLM API calls, one per attempt",
		},
		[]string{"operation", "status"},
	)

	// Upstream call duration histogram
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream LLM API call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// Active streams gauge
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "active_streams",
			Help:      "Number of response streams currently open",
		},
	)

	// Stream chunk counters
	StreamChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "stream_chunks_total",
			Help:      "Total stream chunks delivered to clients",
		},
		[]string{"type"},
	)

	// Circuit breaker state gauge (0 closed, 1 half-open, 2 open)
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "circuit_breaker_state",
			Help:      "Upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	// Background jobs counter
	BackgroundJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "background_jobs_total",
			Help:      "Total background jobs processed",
		},
		[]string{"job_type", "status"},
	)

	// DB query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"query_type"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpstreamRequest records one upstream LLM API attempt
func RecordUpstreamRequest(operation, status string, durationSec float64) {
	UpstreamRequestsTotal.WithLabelValues(operation, status).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(durationSec)
}

// IncActiveStreams marks a stream as opened
func IncActiveStreams() {
	ActiveStreams.Inc()
}

// DecActiveStreams marks a stream as closed
func DecActiveStreams() {
	ActiveStreams.Dec()
}

// RecordStreamChunk records a chunk delivered to a client
func RecordStreamChunk(chunkType string) {
	StreamChunksTotal.WithLabelValues(chunkType).Inc()
}

// SetCircuitBreakerState records a circuit breaker state change
func SetCircuitBreakerState(state float64) {
	CircuitBreakerState.Set(state)
}

// RecordBackgroundJob records a background job execution
func RecordBackgroundJob(jobType, status string) {
	BackgroundJobsTotal.WithLabelValues(jobType, status).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(queryType string, durationSec float64) {
	DBQueryDuration.WithLabelValues(queryType).Observe(durationSec)
}
