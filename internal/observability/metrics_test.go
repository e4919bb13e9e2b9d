package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets/:id", "GET", 200, 2*time.Millisecond)
	m.RecordRequest("/tickets/:id", "GET", 200, 4*time.Millisecond)
	m.RecordError("/tickets/:id", "GET", "PERMISSION_DENIED")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tickets/:id|GET|200"])
	assert.InDelta(t, 3.0, snap.AvgLatencyMS["/tickets/:id|GET|200"], 1e-9)
	assert.Equal(t, int64(1), snap.Errors["/tickets/:id|GET|PERMISSION_DENIED"])

	var nilMetrics *Metrics
	nilMetrics.RecordRequest("/", "GET", 200, time.Millisecond)
	assert.Empty(t, nilMetrics.Snapshot().Requests)
}
