package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's prometheus collectors.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	authzDecisions  *prometheus.CounterVec
	crmSyncRuns     *prometheus.CounterVec
	crmUpserts      prometheus.Counter
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Errors returned to clients by error code.",
		}, []string{"method", "path", "code"}),
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by check and outcome.",
		}, []string{"check", "outcome"}),
		crmSyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_sync_runs_total",
			Help: "CRM sync runs by outcome.",
		}, []string{"outcome"}),
		crmUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crm_sync_tickets_upserted_total",
			Help: "CRM tickets upserted into the local mirror.",
		}),
	}
	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.authzDecisions,
		m.crmSyncRuns,
		m.crmUpserts,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordAuthzDecision counts an allow or deny for the named check.
func (m *Metrics) RecordAuthzDecision(check string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.authzDecisions.WithLabelValues(check, outcome).Inc()
}

// RecordCRMSync counts a sync run and the rows it upserted.
func (m *Metrics) RecordCRMSync(upserted int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.crmSyncRuns.WithLabelValues("error").Inc()
		return
	}
	m.crmSyncRuns.WithLabelValues("ok").Inc()
	if upserted > 0 {
		m.crmUpserts.Add(float64(upserted))
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
