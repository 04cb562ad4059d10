package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "budgetly"

// PrometheusRecorder implements Recorder on a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	budgetOps        *prometheus.CounterVec
	sessionOutcomes  *prometheus.CounterVec
	principalCache   *prometheus.CounterVec
	credstoreCalls   *prometheus.CounterVec
	credstoreLatency *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with its own registry, including the
// standard Go and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := &PrometheusRecorder{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		budgetOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_operations_total",
			Help:      "Total number of budget mutations by operation",
		}, []string{"operation"}),
		sessionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_validations_total",
			Help:      "Total number of session validations by outcome",
		}, []string{"outcome"}),
		principalCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "principal_cache_lookups_total",
			Help:      "Principal cache lookups by result",
		}, []string{"result"}),
		credstoreCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credstore_calls_total",
			Help:      "Credential store calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		credstoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "credstore_call_duration_seconds",
			Help:      "Credential store call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		p.httpRequests,
		p.httpDuration,
		p.budgetOps,
		p.sessionOutcomes,
		p.principalCache,
		p.credstoreCalls,
		p.credstoreLatency,
	)
	return p
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveHTTPRequest records a served request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncBudgetCreated increments budget created counter.
func (p *PrometheusRecorder) IncBudgetCreated() {
	p.budgetOps.WithLabelValues("create").Inc()
}

// IncBudgetUpdated increments budget updated counter.
func (p *PrometheusRecorder) IncBudgetUpdated() {
	p.budgetOps.WithLabelValues("update").Inc()
}

// IncBudgetDeleted increments budget deleted counter.
func (p *PrometheusRecorder) IncBudgetDeleted() {
	p.budgetOps.WithLabelValues("delete").Inc()
}

// IncSessionOutcome counts a session validation outcome.
func (p *PrometheusRecorder) IncSessionOutcome(outcome string) {
	p.sessionOutcomes.WithLabelValues(outcome).Inc()
}

// IncPrincipalCacheHit increments cache hit counter.
func (p *PrometheusRecorder) IncPrincipalCacheHit() {
	p.principalCache.WithLabelValues("hit").Inc()
}

// IncPrincipalCacheMiss increments cache miss counter.
func (p *PrometheusRecorder) IncPrincipalCacheMiss() {
	p.principalCache.WithLabelValues("miss").Inc()
}

// ObserveCredstoreCall records a credential store call.
func (p *PrometheusRecorder) ObserveCredstoreCall(op, outcome string, duration time.Duration) {
	p.credstoreCalls.WithLabelValues(op, outcome).Inc()
	p.credstoreLatency.WithLabelValues(op).Observe(duration.Seconds())
}
