// Package metrics exposes Prometheus collectors for the API and for
// balance fetches.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finboard"

// Metrics owns a private registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	balanceFetches  *prometheus.CounterVec
	balanceDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	alerts          *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		balanceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_fetches_total",
			Help:      "Balance fetches by account kind and result.",
		}, []string{"kind", "result"}),
		balanceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "balance_fetch_duration_seconds",
			Help:      "Time taken to fetch a balance.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised by type.",
		}, []string{"type"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.balanceFetches,
		m.balanceDuration,
		m.httpRequests,
		m.httpDuration,
		m.alerts,
	)
	return m
}

// ObserveFetch implements balance.Observer.
func (m *Metrics) ObserveFetch(kind domain.Kind, err error, took time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.balanceFetches.WithLabelValues(string(kind), result).Inc()
	m.balanceDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// ObserveAlert counts a raised alert.
func (m *Metrics) ObserveAlert(t domain.AlertType) {
	m.alerts.WithLabelValues(string(t)).Inc()
}

// AlertCounter adapts Metrics to the notification.Notifier interface.
type AlertCounter struct{ m *Metrics }

// Alerts returns a notifier that only counts alerts.
func (m *Metrics) Alerts() AlertCounter { return AlertCounter{m: m} }

func (a AlertCounter) Name() string { return "metrics" }

func (a AlertCounter) Notify(_ context.Context, alert domain.Alert) error {
	a.m.ObserveAlert(alert.Type)
	return nil
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
