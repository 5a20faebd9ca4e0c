// Package metrics exposes Prometheus collectors for the HTTP surface and the
// authentication core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests and multiple routers never collide on
// the global default registerer.
//
// All Observe methods are safe on a nil *Metrics.
type Metrics struct {
	reg *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	authOutcomes   *prometheus.CounterVec
	tokenRejects   *prometheus.CounterVec
	accessDecision *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		authOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_operations_total",
				Help: "Register and login attempts by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		tokenRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_token_rejections_total",
				Help: "Bearer tokens rejected by the request guard, by reason.",
			},
			[]string{"reason"},
		),
		accessDecision: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ownership_decisions_total",
				Help: "Task ownership decisions by result.",
			},
			[]string{"decision"},
		),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.authOutcomes,
		m.tokenRejects,
		m.accessDecision,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Middleware records RPS, latency and in-flight requests. The path label is
// the route template so ids do not explode cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.httpInFlight.Inc()
		start := time.Now()

		defer func() {
			m.httpInFlight.Dec()

			status := strconv.Itoa(c.Writer.Status())
			p := recover()
			if p != nil {
				// Recovery further out writes the 500 after this returns.
				status = strconv.Itoa(http.StatusInternalServerError)
			}

			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request.Method
			m.httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()

			if p != nil {
				panic(p)
			}
		}()

		c.Next()
	}
}

// ObserveAuth counts one register or login outcome, e.g.
// ("login", "invalid_credentials").
func (m *Metrics) ObserveAuth(operation, outcome string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveTokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokenRejects.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveOwnership(decision string) {
	if m == nil {
		return
	}
	m.accessDecision.WithLabelValues(decision).Inc()
}
