package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/John-Robertt/alpresence/internal/app/run"
	"github.com/John-Robertt/alpresence/internal/domain"
)

var _ run.Observer = (*cycleMetrics)(nil)

// cycleMetrics 把周期事件导出为 Prometheus 指标（serve 的 /metrics）。
// 使用独立 registry，避免测试之间共享全局状态。
type cycleMetrics struct {
	registry *prometheus.Registry

	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	inFlight prometheus.Gauge
}

func newCycleMetrics() *cycleMetrics {
	m := &cycleMetrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alpresence",
			Name:      "cycles_total",
			Help:      "Update cycles by outcome (ok, error, stale).",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alpresence",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of committed update cycles.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alpresence",
			Name:      "cycles_in_flight",
			Help:      "Update cycles started but not yet committed or discarded.",
		}),
	}
	m.registry.MustRegister(m.cycles, m.duration, m.inFlight)
	return m
}

func (m *cycleMetrics) OnCycleStart(seq uint64, pageURL string) { m.inFlight.Inc() }

func (m *cycleMetrics) OnCycleDone(seq uint64, rec domain.Record, err error, dur time.Duration) {
	m.inFlight.Dec()
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cycles.WithLabelValues(result).Inc()
	m.duration.Observe(dur.Seconds())
}

func (m *cycleMetrics) OnCycleStale(seq uint64) {
	m.inFlight.Dec()
	m.cycles.WithLabelValues("stale").Inc()
}

func (m *cycleMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
