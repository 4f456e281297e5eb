// Package metrics exposes Prometheus metrics for the gateway.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"capgw/pkg/config"
)

// Collector owns the registry and all gateway metric vectors.
//
// Metrics:
//   - capgw_upstream_requests_total: upstream calls by environment, method, status class
//   - capgw_upstream_latency_seconds: upstream call latency
//   - capgw_upstream_errors_total: classified failures by kind
//   - capgw_session_renewals_total: 401-triggered renewal cycles
//   - capgw_session_authenticated: whether a token pair is cached (1/0)
//   - capgw_inbound_requests_total: inbound gateway requests by route and status
type Collector struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec
	sessionRenewals  *prometheus.CounterVec
	sessionState     *prometheus.GaugeVec
	inboundRequests  *prometheus.CounterVec
}

// NewCollector creates and registers all gateway metrics on a fresh
// registry, including the standard Go and process collectors.
func NewCollector(cfg config.MetricsConfig) *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: registry,

		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_requests_total",
				Help:      "Total upstream calls by environment, method, and status class",
			},
			[]string{"environment", "method", "status_class"},
		),

		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_latency_seconds",
				Help:      "Upstream call latency in seconds, including renewal cycles",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"environment", "method"},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_errors_total",
				Help:      "Total classified upstream failures by error kind",
			},
			[]string{"environment", "kind"},
		),

		sessionRenewals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "session_renewals_total",
				Help:      "Total 401-triggered session renewal cycles",
			},
			[]string{"environment"},
		),

		sessionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "session_authenticated",
				Help:      "Whether a session token pair is cached (1) or not (0)",
			},
			[]string{"environment"},
		),

		inboundRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "inbound_requests_total",
				Help:      "Total inbound gateway requests by route and status",
			},
			[]string{"route", "status"},
		),
	}

	registry.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.upstreamErrors,
		c.sessionRenewals,
		c.sessionState,
		c.inboundRequests,
	)

	return c
}

// ObserveUpstream records one completed upstream call.
func (c *Collector) ObserveUpstream(environment, method string, status int, elapsed time.Duration, renewed bool) {
	c.upstreamRequests.WithLabelValues(environment, method, statusClass(status)).Inc()
	c.upstreamLatency.WithLabelValues(environment, method).Observe(elapsed.Seconds())
	if renewed {
		c.sessionRenewals.WithLabelValues(environment).Inc()
	}
}

// ObserveUpstreamError records one classified upstream failure.
func (c *Collector) ObserveUpstreamError(environment, kind string) {
	c.upstreamErrors.WithLabelValues(environment, kind).Inc()
}

// SetSessionAuthenticated records whether a token pair is cached.
func (c *Collector) SetSessionAuthenticated(environment string, authenticated bool) {
	value := 0.0
	if authenticated {
		value = 1.0
	}
	c.sessionState.WithLabelValues(environment).Set(value)
}

// ObserveInbound records one served inbound request.
func (c *Collector) ObserveInbound(route string, status int) {
	c.inboundRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the Prometheus scrape handler for this registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// statusClass buckets an HTTP status into 2xx/3xx/4xx/5xx.
func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
