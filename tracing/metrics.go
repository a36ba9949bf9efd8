// Package tracing instruments the gateway with Prometheus metrics.
package tracing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus metric vectors (spec §6's observability
// surface, narrowed from the teacher's many-concern Metrics struct down to the five
// vectors this gateway's own components emit).
type Metrics struct {
	ToolCalls        *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
	SSEConnections   *prometheus.GaugeVec
	LockWaitSeconds  prometheus.Histogram
	JobDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the gateway's metric vectors under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ashfox"
	}

	return &Metrics{
		ToolCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tools/call dispatches, by tool name and outcome",
			},
			[]string{"tool", "ok"},
		),

		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of a tools/call dispatch in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"tool"},
		),

		SSEConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mcp_sse_connections",
				Help:      "Currently open SSE connections, by session id",
			},
			[]string{"session"},
		),

		LockWaitSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_lock_wait_seconds",
				Help:      "Time spent waiting to acquire the pipeline's mutation lock",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
			},
		),

		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_job_duration_seconds",
				Help:      "Duration of a worker job from claim to completion, by kind and outcome",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind", "status"},
		),
	}
}

// RecordToolCall implements mcprouter.MetricsRecorder.
func (m *Metrics) RecordToolCall(tool string, ok bool, duration time.Duration) {
	okLabel := "true"
	if !ok {
		okLabel = "false"
	}
	m.ToolCalls.WithLabelValues(tool, okLabel).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordSSEConnection sets the current SSE connection count for a session.
func (m *Metrics) RecordSSEConnection(sessionID string, count int) {
	m.SSEConnections.WithLabelValues(sessionID).Set(float64(count))
}

// RecordLockWait records time spent waiting on the pipeline's mutation lock.
func (m *Metrics) RecordLockWait(d time.Duration) {
	m.LockWaitSeconds.Observe(d.Seconds())
}

// RecordJob records a worker job's duration and outcome.
func (m *Metrics) RecordJob(kind, status string, d time.Duration) {
	m.JobDuration.WithLabelValues(kind, status).Observe(d.Seconds())
}
