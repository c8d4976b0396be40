package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finform/internal/core"
)

// metrics holds the collectors of one server. Each server owns its registry
// so several servers can coexist in tests.
type metrics struct {
	registry           *prometheus.Registry
	requestCount       *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	analyses           *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	analysisDuration   prometheus.Histogram
	conflicts          prometheus.Counter
	rateLimited        prometheus.Counter
	suspicious         *prometheus.CounterVec
	journalFailures    prometheus.Counter
}

func newMetrics(sessions func() int) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_http_requests_total",
			Help: "How many HTTP requests processed, partitioned by status code, HTTP method and route.",
		}, []string{"code", "method", "url"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "finform_http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds.",
		}, []string{"code", "method", "url"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_analyses_total",
			Help: "Submissions partitioned by outcome.",
		}, []string{"outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_validation_failures_total",
			Help: "Rejected submissions partitioned by the first violated rule.",
		}, []string{"rule"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finform_analyzer_request_duration_seconds",
			Help:    "Latency of calls to the analysis service.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finform_submission_conflicts_total",
			Help: "Submissions refused because another one was in flight for the session.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finform_rate_limit_hits_total",
			Help: "Requests refused by the rate limiter.",
		}),
		suspicious: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_suspicious_requests_total",
			Help: "Requests flagged as suspicious, partitioned by reason.",
		}, []string{"reason"}),
		journalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finform_journal_failures_total",
			Help: "Journal records that could not be stored or published.",
		}),
	}

	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.analyses,
		m.validationFailures,
		m.analysisDuration,
		m.conflicts,
		m.rateLimited,
		m.suspicious,
		m.journalFailures,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "finform_sessions",
			Help: "Browser sessions currently held in memory.",
		}, func() float64 { return float64(sessions()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observeRequest records one completed HTTP request.
func (m *metrics) observeRequest(r *http.Request, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	route := routeLabel(r.URL.Path)
	m.requestDuration.WithLabelValues(code, r.Method, route).Observe(duration.Seconds())
	m.requestCount.WithLabelValues(code, r.Method, route).Inc()
}

func (m *metrics) observeOutcome(outcome core.Outcome) {
	m.analyses.WithLabelValues(string(outcome)).Inc()
}

// routeLabel collapses paths to the known routes to bound label cardinality.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/static/"):
		return "/static/"
	case path == "/", path == "/analyze", path == "/ui/expense-row",
		path == "/healthz", path == "/readyz", path == "/metrics":
		return path
	default:
		return "other"
	}
}
