// Package metrics exposes Prometheus collectors for the demo service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider call outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "route"},
	)

	providerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firecrawl_calls_total",
			Help: "Total number of scraping provider API calls, labeled by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	providerCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "firecrawl_call_duration_seconds",
			Help:    "Histogram of scraping provider API latencies, labeled by operation.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	batchMethodTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firecrawl_batch_method_total",
			Help: "Batch scrape submissions, labeled by the client method that served them.",
		},
		[]string{"method"},
	)

	jobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firecrawl_jobs_submitted_total",
			Help: "Asynchronous provider jobs accepted, labeled by kind.",
		},
		[]string{"kind"},
	)

	sideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firecrawl_side_effect_failures_total",
			Help: "Ledger or event publish failures that did not fail the request, labeled by component.",
		},
		[]string{"component"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveProviderCall records one provider API call.
func ObserveProviderCall(operation, outcome string, duration time.Duration) {
	providerCallsTotal.WithLabelValues(operation, outcome).Inc()
	providerCallDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveBatchMethod records which client method served a batch request.
func ObserveBatchMethod(method string) {
	batchMethodTotal.WithLabelValues(method).Inc()
}

// ObserveJobSubmitted counts an accepted crawl or batch job.
func ObserveJobSubmitted(kind string) {
	jobsSubmittedTotal.WithLabelValues(kind).Inc()
}

// ObserveSideEffectFailure counts a swallowed ledger or publisher error.
func ObserveSideEffectFailure(component string) {
	sideEffectFailuresTotal.WithLabelValues(component).Inc()
}
