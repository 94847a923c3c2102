// Package observability collects Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and the application metric vectors.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	priceResolutions *prometheus.CounterVec
	timelineBuilds   prometheus.Counter
	webhookEvents    *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printforge_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "printforge_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printforge_price_resolutions_total",
		Help: "Effective price resolutions by outcome (hit, unavailable, missing, error).",
	}, []string{"outcome"})
	timelines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "printforge_timeline_builds_total",
		Help: "Order timeline reconstructions served.",
	})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printforge_webhook_events_total",
		Help: "Inbound webhook events by source and result (applied, duplicate, rejected).",
	}, []string{"source", "result"})
	registry.MustRegister(requests, duration, resolutions, timelines, webhooks)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		priceResolutions: resolutions,
		timelineBuilds:   timelines,
		webhookEvents:    webhooks,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObservePriceResolution records the outcome of a price resolution.
func (m *Metrics) ObservePriceResolution(outcome string) {
	if m == nil {
		return
	}
	m.priceResolutions.WithLabelValues(outcome).Inc()
}

// ObserveTimelineBuild records one timeline reconstruction.
func (m *Metrics) ObserveTimelineBuild() {
	if m == nil {
		return
	}
	m.timelineBuilds.Inc()
}

// ObserveWebhookEvent records an inbound webhook event.
func (m *Metrics) ObserveWebhookEvent(source, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(source, result).Inc()
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for module-specific metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
