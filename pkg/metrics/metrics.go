// Package metrics provides the Prometheus metrics exported by the bridge.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeUpstream    = "upstream_error"
	OutcomeUnavailable = "unavailable"
	OutcomeTransport   = "transport_error"
)

var (
	// RequestsTotal counts HTTP requests by route and status code class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puterbridge_requests_total",
			Help: "Total requests",
		},
		[]string{"route", "status"},
	)

	// RequestDuration records HTTP handler duration in seconds by route.
	// Streaming routes are observed when the handler returns, not when the
	// stream ends.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "puterbridge_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"route"},
	)

	// StreamingConnections tracks the number of active SSE streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "puterbridge_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// UpstreamRequestsTotal counts upstream calls by interface, driver and outcome.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puterbridge_upstream_requests_total",
			Help: "Upstream requests",
		},
		[]string{"interface", "driver", "outcome"},
	)

	// UpstreamLatency records full upstream call latency in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "puterbridge_upstream_latency_seconds",
			Help:    "Upstream latency",
			Buckets: LLMBuckets,
		},
		[]string{"interface", "driver"},
	)

	// NoCredentialTotal counts requests rejected for lack of an eligible account.
	NoCredentialTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "puterbridge_no_credential_total",
			Help: "Requests rejected without an eligible credential",
		},
	)

	// OutcomeJobsDroppedTotal counts outcome records dropped on a full queue.
	OutcomeJobsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "puterbridge_outcome_jobs_dropped_total",
			Help: "Outcome jobs dropped",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		UpstreamRequestsTotal,
		UpstreamLatency,
		NoCredentialTotal,
		OutcomeJobsDroppedTotal,
	)
}

// StatusClass maps an HTTP status code to its "2xx" style class.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
