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

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ErrorsTotal      *prometheus.CounterVec
	ChatTurnsTotal   *prometheus.CounterVec
	EscalationsTotal *prometheus.CounterVec
	StoreOpDuration  *prometheus.HistogramVec
	TicketsFromChat  prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses by error code",
		}, []string{"route", "method", "code"}),
		ChatTurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Assistant turns by topic and reply kind",
		}, []string{"topic", "kind"}),
		EscalationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_escalations_total",
			Help: "Conversations handed to the support team, by reason",
		}, []string{"reason"}),
		StoreOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_store_operation_duration_seconds",
			Help:    "Conversation store operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		TicketsFromChat: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_tickets_created_total",
			Help: "Tickets opened from a chat conversation",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest observes a completed HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(route, method, code).Inc()
}

// RecordChatTurn counts an assistant turn.
func (m *Metrics) RecordChatTurn(topic, kind string) {
	if m == nil {
		return
	}
	m.ChatTurnsTotal.WithLabelValues(topic, kind).Inc()
}

// RecordEscalation counts a conversation reaching escalation.
func (m *Metrics) RecordEscalation(reason string) {
	if m == nil {
		return
	}
	m.EscalationsTotal.WithLabelValues(reason).Inc()
}

// RecordTicketFromChat counts a ticket opened from a conversation.
func (m *Metrics) RecordTicketFromChat() {
	if m == nil {
		return
	}
	m.TicketsFromChat.Inc()
}

// ObserveStoreOp records the latency of a conversation store call started at start.
func (m *Metrics) ObserveStoreOp(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
