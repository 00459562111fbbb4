package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	upstreamCount map[string]int64
	verdictCount  map[string]int64
	evictions     int64
	changes       int64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests       map[string]int64 `json:"requests"`
	Errors         map[string]int64 `json:"errors"`
	Upstream       map[string]int64 `json:"upstream"`
	Verdicts       map[string]int64 `json:"verdicts"`
	Evictions      int64            `json:"evictions"`
	StorageChanges int64            `json:"storage_changes"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		upstreamCount: make(map[string]int64),
		verdictCount:  make(map[string]int64),
	}
}

// RecordRequest increments counters for inbound requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordUpstream counts calls made through the request gateway.
func (m *Metrics) RecordUpstream(path, method string, status int) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upstreamCount[key]++
}

// RecordEviction counts forced credential evictions.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictions++
}

// RecordStorageChange counts credential store mutations.
func (m *Metrics) RecordStorageChange() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes++
}

// RecordVerdict counts route guard outcomes.
func (m *Metrics) RecordVerdict(verdict string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdictCount[verdict]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:       copyCounts(m.requestCount),
		Errors:         copyCounts(m.errorCount),
		Upstream:       copyCounts(m.upstreamCount),
		Verdicts:       copyCounts(m.verdictCount),
		Evictions:      m.evictions,
		StorageChanges: m.changes,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
