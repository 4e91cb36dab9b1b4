// Package metrics exposes Prometheus collectors for the HTTP server and the
// ledger event flow.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finflow/internal/amqp"
)

const namespace = "finflow"

// unmatched labels requests no route pattern claimed, keeping cardinality bounded.
const unmatched = "unmatched"

type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
	exports    *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	mirrorRuns *prometheus.CounterVec
}

// New registers every collector on a private registry, plus the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Committed ledger changes by event kind.",
		}, []string{"kind"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_exports_total",
			Help:      "Rendered report exports by format.",
		}, []string{"format"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rejected_requests_total",
			Help:      "Requests flagged or refused by protective middleware.",
		}, []string{"reason"}),
		mirrorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_runs_total",
			Help:      "Ledger mirror runs by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.events, m.exports, m.rejected, m.mirrorRuns,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency. It must wrap the ServeMux
// directly so the matched pattern is visible after the handler returns.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = unmatched
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLedgerEvent counts a committed ledger change.
func (m *Metrics) ObserveLedgerEvent(kind amqp.EventKind) {
	m.events.WithLabelValues(string(kind)).Inc()
}

// LedgerPublisher counts every event before handing it to Next.
type LedgerPublisher struct {
	Next interface {
		PublishLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error
	}
	Metrics *Metrics
}

func (p LedgerPublisher) PublishLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	p.Metrics.ObserveLedgerEvent(ev.Kind)
	if p.Next == nil {
		return nil
	}
	return p.Next.PublishLedgerEvent(ctx, ev)
}

// ObserveExport counts a rendered export.
func (m *Metrics) ObserveExport(format string) {
	m.exports.WithLabelValues(format).Inc()
}

// ObserveRejected counts a request refused or flagged for reason
// ("rate_limited", "suspicious").
func (m *Metrics) ObserveRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// ObserveMirror counts a mirror run; ok reports success.
func (m *Metrics) ObserveMirror(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.mirrorRuns.WithLabelValues(outcome).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
