package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	requestMillis    map[string]int64
	framesSent       map[string]int64
	framesDropped    map[string]int64
	jobsMaterialized int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests         map[string]int64 `json:"requests"`
	Errors           map[string]int64 `json:"errors"`
	RequestMillis    map[string]int64 `json:"request_millis"`
	FramesSent       map[string]int64 `json:"frames_sent"`
	FramesDropped    map[string]int64 `json:"frames_dropped"`
	JobsMaterialized int64            `json:"jobs_materialized"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		requestMillis: make(map[string]int64),
		framesSent:    make(map[string]int64),
		framesDropped: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestMillis[key] += duration.Milliseconds()
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

// RecordPublished counts realtime frames handed to, or dropped by, subscribers of target.
func (m *Metrics) RecordPublished(target string, delivered, dropped int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesSent[target] += int64(delivered)
	m.framesDropped[target] += int64(dropped)
}

// RecordJobMaterialized counts job tickets created from service requests.
func (m *Metrics) RecordJobMaterialized() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobsMaterialized++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:         copyCounts(m.requestCount),
		Errors:           copyCounts(m.errorCount),
		RequestMillis:    copyCounts(m.requestMillis),
		FramesSent:       copyCounts(m.framesSent),
		FramesDropped:    copyCounts(m.framesDropped),
		JobsMaterialized: m.jobsMaterialized,
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
