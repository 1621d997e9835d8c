// Package metrics holds the Prometheus collectors exported by the explorer server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fractal "github.com/marben/fractal_explorer"
)

type Metrics struct {
	reg prometheus.Gatherer

	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	clicks         *prometheus.CounterVec
	sessions       prometheus.Gauge
	wsClients      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractal_renders_total",
				Help: "Total number of rendered frames",
			},
			[]string{"variant"},
		),
		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fractal_render_duration_seconds",
				Help:    "Duration of frame renders",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"variant"},
		),
		clicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractal_zoom_clicks_total",
				Help: "Total number of click-to-zoom operations",
			},
			[]string{"variant"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractal_live_sessions",
			Help: "Number of explorer sessions held in memory",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fractal_websocket_clients",
			Help: "Number of connected websocket clients",
		}),
	}
	reg.MustRegister(m.renders, m.renderDuration, m.clicks, m.sessions, m.wsClients)
	return m
}

// ObserveRender records one finished frame.
func (m *Metrics) ObserveRender(v fractal.Variant, d time.Duration) {
	m.renders.WithLabelValues(v.String()).Inc()
	m.renderDuration.WithLabelValues(v.String()).Observe(d.Seconds())
}

func (m *Metrics) Click(v fractal.Variant) {
	m.clicks.WithLabelValues(v.String()).Inc()
}

func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

func (m *Metrics) ClientConnected()    { m.wsClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
