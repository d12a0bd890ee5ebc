// Package metrics exposes Prometheus collectors for the portal.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the portal collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	created     *prometheus.CounterVec
	exportedRow prometheus.Counter
	httpLatency *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteportal",
			Name:      "requisition_transitions_total",
			Help:      "Approval transitions recorded, by stage and outcome.",
		}, []string{"stage", "outcome"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteportal",
			Name:      "requisitions_created_total",
			Help:      "Requisitions created, by requester role.",
		}, []string{"role"}),
		exportedRow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quoteportal",
			Name:      "export_rows_total",
			Help:      "Rows written to CSV exports.",
		}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quoteportal",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.transitions,
		m.created,
		m.exportedRow,
		m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Transition(stage, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) Created(role string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(role).Inc()
}

func (m *Metrics) Exported(rows int) {
	if m == nil {
		return
	}
	m.exportedRow.Add(float64(rows))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request latency labelled by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpLatency.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
