package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/live-map", "GET", 200, time.Millisecond)
	m.RecordRequest("/live-map", "GET", 200, time.Millisecond)
	m.RecordUpstream("/auth/me/", "GET", 401)
	m.RecordVerdict("forbidden")
	m.RecordEviction()
	m.RecordEviction()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/live-map|GET|200"])
	assert.Equal(t, int64(1), snap.Upstream["/auth/me/|GET|401"])
	assert.Equal(t, int64(1), snap.Verdicts["forbidden"])
	assert.Equal(t, int64(2), snap.Evictions)

	// snapshot is a copy
	snap.Requests["/live-map|GET|200"] = 99
	assert.Equal(t, int64(2), m.Snapshot().Requests["/live-map|GET|200"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordEviction()
	m.RecordVerdict("authorized")
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
