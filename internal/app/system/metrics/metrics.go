// Package metrics holds the Prometheus collectors the service exports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics is a private registry plus the service's collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	opsTotal     *prometheus.CounterVec
	opsDuration  *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	notifyFailed *prometheus.CounterVec
}

// New builds the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "capstone",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by outcome (ok or the error kind).",
		}, []string{"op", "outcome"}),
		opsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "capstone",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations.",
			Buckets:   histogramBuckets,
		}, []string{"op"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "capstone",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests.",
		}, []string{"method", "route", "status"}),
		notifyFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "capstone",
			Subsystem: "notify",
			Name:      "delivery_failures_total",
			Help:      "Notification deliveries that failed, by sink.",
		}, []string{"sink"}),
	}
	m.reg.MustRegister(
		m.opsTotal, m.opsDuration, m.httpTotal, m.notifyFailed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe records one engine operation that started at start.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(errs.KindOf(err))
		if outcome == "" {
			outcome = "internal"
		}
	}
	m.opsTotal.WithLabelValues(op, outcome).Inc()
	m.opsDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// NotifyFailed counts a failed notification delivery. It matches
// notify.WithFailureHook.
func (m *Metrics) NotifyFailed(sink string) {
	if m == nil {
		return
	}
	m.notifyFailed.WithLabelValues(sink).Inc()
}

// Middleware counts requests by method, chi route pattern and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
