package observability

import (
	"strconv"
	"sync"
	"time"
)

// RouteStats aggregates request counters for one method/route/status key.
type RouteStats struct {
	Count         int64
	TotalDuration time.Duration
}

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]*RouteStats
	errorCount   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]*RouteStats),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := method + " " + path + " " + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.requestCount[key]
	if !ok {
		stats = &RouteStats{}
		m.requestCount[key] = stats
	}
	stats.Count++
	stats.TotalDuration += duration
}

// RecordError increments error counters keyed by error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := method + " " + path + " " + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() (requests map[string]RouteStats, errors map[string]int64) {
	requests = make(map[string]RouteStats)
	errors = make(map[string]int64)
	if m == nil {
		return requests, errors
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.requestCount {
		requests[k] = *v
	}
	for k, v := range m.errorCount {
		errors[k] = v
	}
	return requests, errors
}
