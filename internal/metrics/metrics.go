package metrics

import (
	"sync"
	"time"

	"botgateway/internal/core"
)

// qpsWindow is the sliding window for the QPS gauge.
const qpsWindow = time.Minute

// MetricsService aggregates in-memory request statistics for the stats
// endpoint. Analytics proper live in the store; these counters reset on
// restart and exist for live operational inspection only.
type MetricsService struct {
	mu                sync.Mutex
	totalRequests     int64
	successRequests   int64
	failedRequests    int64
	totalResponseTime int64
	lastRequestTime   time.Time
	byRoute           map[string]int64
	recent            []time.Time
}

var _ core.MetricsCollector = (*MetricsService)(nil)

// NewMetricsService creates an empty metrics service.
func NewMetricsService() *MetricsService {
	return &MetricsService{
		byRoute: make(map[string]int64),
	}
}

// RecordRequest records one request outcome.
func (m *MetricsService) RecordRequest(success bool, responseTimeMs int64, route string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.totalRequests++
	if success {
		m.successRequests++
	} else {
		m.failedRequests++
	}
	m.totalResponseTime += responseTimeMs
	m.lastRequestTime = now
	m.byRoute[route]++

	m.recent = append(m.recent, now)
	m.pruneRecentLocked(now)
}

func (m *MetricsService) pruneRecentLocked(now time.Time) {
	cutoff := now.Add(-qpsWindow)
	firstFresh := 0
	for firstFresh < len(m.recent) && m.recent[firstFresh].Before(cutoff) {
		firstFresh++
	}
	if firstFresh > 0 {
		m.recent = append(m.recent[:0], m.recent[firstFresh:]...)
	}
}

// GetRequestStats returns a snapshot of the aggregated counters.
func (m *MetricsService) GetRequestStats() core.RequestStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	byRoute := make(map[string]int64, len(m.byRoute))
	for route, count := range m.byRoute {
		byRoute[route] = count
	}

	return core.RequestStats{
		TotalRequests:      m.totalRequests,
		SuccessfulRequests: m.successRequests,
		FailedRequests:     m.failedRequests,
		TotalResponseTime:  m.totalResponseTime,
		LastRequestTime:    m.lastRequestTime,
		ByRoute:            byRoute,
	}
}

// GetQPS returns requests per second over the last minute.
func (m *MetricsService) GetQPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneRecentLocked(time.Now())
	return float64(len(m.recent)) / qpsWindow.Seconds()
}
