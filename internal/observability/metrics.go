package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	assignments *prometheus.CounterVec
	autoClosed  prometheus.Counter
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "HTTP error responses by route, method and error code",
		}, []string{"path", "method", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_ticket_transitions_total",
			Help: "Ticket status transitions by target status",
		}, []string{"to"}),
		assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_assignments_total",
			Help: "Technician selections by source",
		}, []string{"source"}),
		autoClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_autoclose_total",
			Help: "Tickets closed by the automatic sweep",
		}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordTransition counts a committed status change.
func (m *Metrics) RecordTransition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// RecordAssignment counts a selector outcome.
func (m *Metrics) RecordAssignment(source string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(source).Inc()
}

// RecordAutoClose counts tickets closed by one sweep.
func (m *Metrics) RecordAutoClose(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.autoClosed.Add(float64(n))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
