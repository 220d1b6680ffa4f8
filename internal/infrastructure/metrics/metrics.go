// Package metrics exposes the ordering engine counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aranda"

// Metrics implements usecase.Recorder on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	resolutions  *prometheus.CounterVec
	diagnostics  *prometheus.CounterVec
	messages     *prometheus.CounterVec
	extractions  prometheus.Histogram
	lineItems    prometheus.Counter
	orders       prometheus.Counter
	orderLines   prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Product phrase resolutions by stage and outcome.",
		}, []string{"stage", "kind"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Message segments that yielded no line item, by reason.",
		}, []string{"kind"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat messages handled, by resulting mode and step.",
		}, []string{"mode", "step"}),
		extractions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting line items from one message.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
		}),
		lineItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_items_total",
			Help:      "Line items extracted from messages.",
		}),
		orders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_confirmed_total",
			Help:      "Orders confirmed and archived.",
		}),
		orderLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_lines",
			Help:      "Number of lines per confirmed order.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.resolutions, m.diagnostics, m.messages, m.extractions,
		m.lineItems, m.orders, m.orderLines, m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveResolution(stage domain.MatchStage, kind domain.ResolutionKind) {
	m.resolutions.WithLabelValues(string(stage), kind.String()).Inc()
}

func (m *Metrics) ObserveExtraction(items, diagnostics int, elapsed time.Duration) {
	m.extractions.Observe(elapsed.Seconds())
	m.lineItems.Add(float64(items))
}

func (m *Metrics) ObserveDiagnostic(kind domain.DiagnosticKind) {
	m.diagnostics.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveMessage(mode domain.Mode, step domain.Step) {
	m.messages.WithLabelValues(string(mode), step.String()).Inc()
}

func (m *Metrics) ObserveOrder(lines int) {
	m.orders.Inc()
	m.orderLines.Observe(float64(lines))
}

// ObserveHTTP records one served request. route is the matched route
// template, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
