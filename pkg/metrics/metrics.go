// Package metrics holds the Prometheus collectors exported by the console.
// Everything registers on Registry so tests can read values without touching the global default.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "club_console"

// Registry is the process-wide collector registry exposed on the metrics path.
var Registry = prometheus.NewRegistry()

var (
	// CommitsTotal counts commit attempts by final state (completed, aborted, declined, invalid).
	CommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commits_total",
		Help:      "Commit attempts by outcome.",
	}, []string{"outcome"})

	// CommitDuration observes the persisting phase in seconds.
	CommitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "commit_duration_seconds",
		Help:      "Duration of the persisting phase of a commit.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// AttachmentUploads counts blob uploads by slot kind and outcome.
	AttachmentUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attachment_uploads_total",
		Help:      "Attachment uploads by slot kind and outcome.",
	}, []string{"slot", "outcome"})

	// AllocationAttempts counts candidate identifiers tested by the allocator.
	AllocationAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocation_attempts_total",
		Help:      "Candidate identifiers tried, by kind (record, logo).",
	}, []string{"kind"})

	// CacheLookups counts record list cache hits and misses.
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_cache_lookups_total",
		Help:      "Record list cache lookups by collection and result.",
	}, []string{"collection", "result"})

	// ConfigReloads counts watcher reloads by result.
	ConfigReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "config_reloads_total",
		Help:      "Configuration reload attempts by result.",
	}, []string{"result"})

	// BreakerState reports circuit breaker state (0=closed, 1=open, 2=half-open).
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_state",
		Help:      "Circuit breaker state (0=closed,1=open,2=half-open).",
	}, []string{"name"})

	// BreakerCalls counts calls through a breaker by result (success, failure, timeout, rejected).
	BreakerCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_calls_total",
		Help:      "Calls through a circuit breaker by result.",
	}, []string{"name", "result"})

	// BreakerLatency observes call latency through a breaker in seconds.
	BreakerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "circuit_call_duration_seconds",
		Help:      "Latency of calls through a circuit breaker.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
	}, []string{"name"})

	// HTTPRequestDuration observes API request latency by route template and status code.
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
)

func init() {
	Registry.MustRegister(
		CommitsTotal,
		CommitDuration,
		AttachmentUploads,
		AllocationAttempts,
		CacheLookups,
		ConfigReloads,
		BreakerState,
		BreakerCalls,
		BreakerLatency,
		HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
