package dev

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alvori-dev/alvori/internal/bundle"
)

// MetricsPath serves the dev server metrics.
const MetricsPath = "/__alvori/metrics"

// Metrics holds the dev server Prometheus metrics. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal    *prometheus.CounterVec
	buildDuration  *prometheus.HistogramVec
	rendersTotal   *prometheus.CounterVec
	renderDuration prometheus.Histogram
	reloadClients  prometheus.Gauge
	gateWait       prometheus.Histogram
}

// NewMetrics creates the metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alvori",
			Subsystem: "dev",
			Name:      "builds_total",
			Help:      "Total number of completed builds by compiler and result",
		}, []string{"compiler", "result"}),

		buildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alvori",
			Subsystem: "dev",
			Name:      "build_duration_seconds",
			Help:      "Build duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"compiler"}),

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alvori",
			Subsystem: "dev",
			Name:      "renders_total",
			Help:      "Total number of page responses by status code",
		}, []string{"status"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alvori",
			Subsystem: "dev",
			Name:      "render_duration_seconds",
			Help:      "Server render duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		reloadClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "alvori",
			Subsystem: "dev",
			Name:      "reload_clients",
			Help:      "Number of connected live-reload clients",
		}),

		gateWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alvori",
			Subsystem: "dev",
			Name:      "gate_wait_seconds",
			Help:      "Time requests spent waiting for the first build",
			Buckets:   []float64{.001, .01, .1, .5, 1, 5, 10, 30},
		}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeBuild(res bundle.Result) {
	if m == nil {
		return
	}
	result := "success"
	if !res.OK() {
		result = "failure"
	}
	m.buildsTotal.WithLabelValues(res.Compiler, result).Inc()
	m.buildDuration.WithLabelValues(res.Compiler).Observe(res.Duration.Seconds())
}

func (m *Metrics) observeResponse(status int) {
	if m == nil {
		return
	}
	m.rendersTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) observeRender(d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
}

func (m *Metrics) observeGateWait(d time.Duration) {
	if m == nil {
		return
	}
	m.gateWait.Observe(d.Seconds())
}

func (m *Metrics) setReloadClients(n int) {
	if m == nil {
		return
	}
	m.reloadClients.Set(float64(n))
}
