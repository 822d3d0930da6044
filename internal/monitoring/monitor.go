package monitoring

import (
	"sync"
	"time"
)

// Monitor collects reconciliation statistics for the gateway's stats view
type Monitor struct {
	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
	}
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// GetMetric returns a specific metric value
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// GetMetrics returns all current metrics
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	// Create a copy to avoid concurrent map access
	metrics := make(map[string]interface{}, len(m.metrics))
	for k, v := range m.metrics {
		metrics[k] = v
	}

	// Add system metrics
	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()

	return metrics
}

// Reset clears all metrics
func (m *Monitor) Reset() {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics = make(map[string]interface{})
}

// RecordRefresh records a completed refetch of a cached collection
func (m *Monitor) RecordRefresh(collection string) {
	m.bump(collection+"_refreshes", collection+"_last_refreshed")
}

// RecordEvent records one inbound push event by name
func (m *Monitor) RecordEvent(event string) {
	m.bump("event_"+event, "event_"+event+"_last_seen")
}

// RecordConnect records a successful websocket (re)connection
func (m *Monitor) RecordConnect() {
	m.bump("socket_connects", "socket_last_connected")
}

func (m *Monitor) bump(counter, stamp string) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()

	n, _ := m.metrics[counter].(int)
	m.metrics[counter] = n + 1
	m.metrics[stamp] = time.Now().Format(time.RFC3339)
}
