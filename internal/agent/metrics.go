package agent

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActiveStreams  prometheus.Gauge
	RecordsTotal   prometheus.Counter
	ToolCallsTotal prometheus.Counter
	StreamErrors   prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "atelier_active_streams",
				Help: "Current number of active chat streams",
			}),
			RecordsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "atelier_stream_records_total",
				Help: "Total number of stream records emitted",
			}),
			ToolCallsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "atelier_tool_calls_total",
				Help: "Total number of tool invocations executed",
			}),
			StreamErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "atelier_stream_errors_total",
				Help: "Total number of error records emitted",
			}),
		}
	})
	return metricsInstance
}

func (m *Metrics) StreamStarted() {
	if m == nil || m.ActiveStreams == nil {
		return
	}
	m.ActiveStreams.Inc()
}

func (m *Metrics) StreamFinished() {
	if m == nil || m.ActiveStreams == nil {
		return
	}
	m.ActiveStreams.Dec()
}

func (m *Metrics) RecordEmitted() {
	if m == nil || m.RecordsTotal == nil {
		return
	}
	m.RecordsTotal.Inc()
}

func (m *Metrics) ToolCallExecuted() {
	if m == nil || m.ToolCallsTotal == nil {
		return
	}
	m.ToolCallsTotal.Inc()
}

func (m *Metrics) ErrorEmitted() {
	if m == nil || m.StreamErrors == nil {
		return
	}
	m.StreamErrors.Inc()
}
