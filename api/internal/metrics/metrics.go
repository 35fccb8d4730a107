// Package metrics exposes advisory counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg         *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	breaker     *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrimind",
			Subsystem: "advisory",
			Name:      "invocations_total",
			Help:      "Advisory invocations by flow and outcome.",
		}, []string{"flow", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agrimind",
			Subsystem: "advisory",
			Name:      "duration_seconds",
			Help:      "Advisory invocation latency, provider call included.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"flow"}),
		breaker: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agrimind",
			Subsystem: "llm",
			Name:      "breaker_open",
			Help:      "1 while the provider circuit breaker is not closed.",
		}, []string{"engine"}),
	}
	m.reg.MustRegister(
		m.invocations,
		m.duration,
		m.breaker,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe implements advisory.Recorder.
func (m *Metrics) Observe(flow, outcome string, elapsed time.Duration) {
	m.invocations.WithLabelValues(flow, outcome).Inc()
	m.duration.WithLabelValues(flow).Observe(elapsed.Seconds())
}

// BreakerOpen records whether the named engine's breaker currently rejects calls.
func (m *Metrics) BreakerOpen(engine string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.breaker.WithLabelValues(engine).Set(v)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
