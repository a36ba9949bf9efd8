package tracing

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordToolCallIncrementsCounterAndHistogram(t *testing.T) {
	m := NewMetrics("ashfox_test_" + t.Name())

	m.RecordToolCall("add_bone", true, 10*time.Millisecond)
	m.RecordToolCall("add_bone", false, 5*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCalls.WithLabelValues("add_bone", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCalls.WithLabelValues("add_bone", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ToolCallDuration))
}

func TestRecordSSEConnectionSetsGauge(t *testing.T) {
	m := NewMetrics("ashfox_test_" + t.Name())

	m.RecordSSEConnection("sess-1", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SSEConnections.WithLabelValues("sess-1")))
}
