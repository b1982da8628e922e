// Package observability collects session metrics, writes request traces
// and reports unexpected failures to Sentry.
package observability

import (
	"sync"
	"time"

	"github.com/studysync/studysync-cli/internal/api"
)

// SessionMetrics aggregates one CLI invocation.
type SessionMetrics struct {
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	TotalRequests   int           `json:"total_requests"`
	Replays         int           `json:"replays"`
	FailedRequests  int           `json:"failed_requests"`
	Refreshes       int           `json:"refreshes"`
	FailedRefreshes int           `json:"failed_refreshes"`
	TotalLatency    time.Duration `json:"total_latency"`
	ByStatus        map[int]int   `json:"by_status,omitempty"`
}

// SessionCollector accumulates metrics. It is safe for concurrent use.
type SessionCollector struct {
	mu sync.Mutex
	m  SessionMetrics
}

// NewSessionCollector starts a collector now.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{m: SessionMetrics{StartTime: time.Now(), ByStatus: map[int]int{}}}
}

// RecordRequest counts one HTTP exchange. A request that got no response
// or a status of 400 or above counts as failed.
func (c *SessionCollector) RecordRequest(info api.RequestInfo, result api.RequestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m.TotalRequests++
	c.m.TotalLatency += result.Duration
	if info.Replay {
		c.m.Replays++
	}
	if result.Err != nil || result.StatusCode >= 400 {
		c.m.FailedRequests++
	}
	if result.StatusCode > 0 {
		c.m.ByStatus[result.StatusCode]++
	}
}

// RecordRefresh counts one refresh attempt.
func (c *SessionCollector) RecordRefresh(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Refreshes++
	if err != nil {
		c.m.FailedRefreshes++
	}
}

// Summary returns a snapshot of the metrics.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.m
	s.EndTime = time.Now()
	s.ByStatus = make(map[int]int, len(c.m.ByStatus))
	for k, v := range c.m.ByStatus {
		s.ByStatus[k] = v
	}
	return s
}

// Stats flattens the summary for the output envelope's meta.
func (s SessionMetrics) Stats() map[string]any {
	stats := map[string]any{
		"requests":    s.TotalRequests,
		"latency_ms":  s.TotalLatency.Milliseconds(),
		"duration_ms": s.EndTime.Sub(s.StartTime).Milliseconds(),
	}
	if s.Replays > 0 {
		stats["replays"] = s.Replays
	}
	if s.FailedRequests > 0 {
		stats["failed"] = s.FailedRequests
	}
	if s.Refreshes > 0 {
		stats["refreshes"] = s.Refreshes
	}
	if s.FailedRefreshes > 0 {
		stats["failed_refreshes"] = s.FailedRefreshes
	}
	return stats
}

// Reset clears the metrics and restarts the clock.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = SessionMetrics{StartTime: time.Now(), ByStatus: map[int]int{}}
}
