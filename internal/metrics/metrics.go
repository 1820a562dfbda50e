// Package metrics defines the Prometheus collectors for the server and the
// calendar adapters.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpErrors   *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	adapterCalls    *prometheus.CounterVec
	adapterDuration *prometheus.HistogramVec

	feedRefreshes *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		}, []string{"method", "route"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_http_errors_total",
			Help: "Total number of HTTP requests resulting in server errors.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timeline_http_request_duration_seconds",
			Help:    "Histogram of latencies for HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		adapterCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_adapter_calls_total",
			Help: "Calendar adapter calls by outcome kind.",
		}, []string{"adapter", "operation", "kind"}),
		adapterDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timeline_adapter_call_duration_seconds",
			Help:    "Histogram of calendar adapter call latencies.",
			Buckets: prometheus.DefBuckets,
		}, []string{"adapter", "operation"}),
		feedRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_feed_refresh_total",
			Help: "ICS feed refresh attempts by result.",
		}, []string{"feed", "result"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies labelled by chi route
// pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		code := strconv.Itoa(status)

		m.httpRequests.WithLabelValues(r.Method, route).Inc()
		m.httpDuration.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
		if status >= http.StatusInternalServerError {
			m.httpErrors.WithLabelValues(r.Method, route, code).Inc()
		}
	})
}

// ObserveAdapterCall records one adapter call. kind is "ok" or an error
// kind label.
func (m *Metrics) ObserveAdapterCall(adapter, operation, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.adapterCalls.WithLabelValues(adapter, operation, kind).Inc()
	m.adapterDuration.WithLabelValues(adapter, operation).Observe(elapsed.Seconds())
}

// ObserveFeedRefresh records a feed refresh attempt.
func (m *Metrics) ObserveFeedRefresh(feed string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.feedRefreshes.WithLabelValues(feed, result).Inc()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
