package metrics

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Metrics is the process-wide counter block: animation throughput,
// Art-Net receive health, strip commit latency, and the ingress HTTP
// surface's own request stats.
type Metrics struct {
	// Animation metrics
	AnimationFPS  float64 `json:"animation_fps"`
	GroupCount    int64   `json:"group_count"`
	ArbiterState  int64   `json:"arbiter_state"` // 0=idle, 1=animating, 2=receiving_artnet

	// Strip metrics
	StripCommitsTotal int64   `json:"strip_commits_total"`
	AvgCommitTimeMs   float64 `json:"avg_commit_time_ms"`

	// Art-Net metrics
	ArtNetPacketsTotal int64 `json:"artnet_packets_total"`
	ArtNetDroppedTotal int64 `json:"artnet_dropped_total"`

	// System metrics
	Uptime         int64   `json:"uptime_seconds"`
	MemoryUsed     uint64  `json:"memory_used_bytes"`
	MemoryTotal    uint64  `json:"memory_total_bytes"`
	GoroutineCount int     `json:"goroutine_count"`

	// Ingress API metrics
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	AvgResponseTime float64 `json:"avg_response_time_ms"`

	mu        sync.RWMutex
	startTime time.Time
}

// NewMetrics constructs a fresh, zeroed Metrics block.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// SetAnimationFPS records the animation controller's current
// observed frame rate, as reported by its fps tracker.
func (m *Metrics) SetAnimationFPS(fps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnimationFPS = fps
}

// SetGroupCount records how many animation groups are configured.
func (m *Metrics) SetGroupCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GroupCount = int64(n)
}

// SetArbiterState records the arbiter's current state as a small
// integer gauge (0=idle, 1=animating, 2=receiving_artnet), matching
// the order of arbiter.State's iota.
func (m *Metrics) SetArbiterState(state int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArbiterState = int64(state)
}

// IncrementStripCommits counts one Strip.Commit call.
func (m *Metrics) IncrementStripCommits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StripCommitsTotal++
}

// RecordCommitTime folds one Strip.Commit duration into the moving
// average commit latency.
func (m *Metrics) RecordCommitTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := float64(d.Microseconds()) / 1000.0
	if m.AvgCommitTimeMs == 0 {
		m.AvgCommitTimeMs = ms
	} else {
		m.AvgCommitTimeMs = (m.AvgCommitTimeMs * 0.9) + (ms * 0.1)
	}
}

// IncrementArtNetPackets counts one accepted Art-Net DMX frame.
func (m *Metrics) IncrementArtNetPackets() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArtNetPacketsTotal++
}

// IncrementArtNetDropped counts one rejected or truncated Art-Net packet.
func (m *Metrics) IncrementArtNetDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArtNetDroppedTotal++
}

// IncrementRequests counts one ingress HTTP request.
func (m *Metrics) IncrementRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalRequests++
}

// IncrementErrors counts one ingress HTTP response with status >= 400.
func (m *Metrics) IncrementErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalErrors++
}

// RecordResponseTime folds one request's duration into the moving
// average response time.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := float64(duration.Milliseconds())
	if m.AvgResponseTime == 0 {
		m.AvgResponseTime = ms
	} else {
		m.AvgResponseTime = (m.AvgResponseTime * 0.9) + (ms * 0.1)
	}
}

// UpdateSystemMetrics refreshes uptime, memory, and goroutine counts
// from the Go runtime. Call this periodically, not per-request.
func (m *Metrics) UpdateSystemMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Uptime = int64(time.Since(m.startTime).Seconds())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.MemoryUsed = memStats.Alloc
	m.MemoryTotal = memStats.Sys

	m.GoroutineCount = runtime.NumGoroutine()
}

// GetMetrics returns a JSON-friendly snapshot, grouped by subsystem.
func (m *Metrics) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"animation": map[string]interface{}{
			"fps":           m.AnimationFPS,
			"group_count":   m.GroupCount,
			"arbiter_state": m.ArbiterState,
		},
		"strip": map[string]interface{}{
			"commits_total":      m.StripCommitsTotal,
			"avg_commit_time_ms": m.AvgCommitTimeMs,
		},
		"artnet": map[string]interface{}{
			"packets_total": m.ArtNetPacketsTotal,
			"dropped_total": m.ArtNetDroppedTotal,
			"drop_rate": func() float64 {
				total := m.ArtNetPacketsTotal + m.ArtNetDroppedTotal
				if total == 0 {
					return 0.0
				}
				return float64(m.ArtNetDroppedTotal) / float64(total) * 100
			}(),
		},
		"system": map[string]interface{}{
			"uptime_seconds":     m.Uptime,
			"memory_used_bytes":  m.MemoryUsed,
			"memory_total_bytes": m.MemoryTotal,
			"memory_used_mb":     m.MemoryUsed / 1024 / 1024,
			"goroutines":         m.GoroutineCount,
		},
		"api": map[string]interface{}{
			"total_requests":       m.TotalRequests,
			"total_errors":         m.TotalErrors,
			"avg_response_time_ms": m.AvgResponseTime,
			"error_rate": func() float64 {
				if m.TotalRequests == 0 {
					return 0.0
				}
				return float64(m.TotalErrors) / float64(m.TotalRequests) * 100
			}(),
		},
	}
}

// PrometheusFormat renders the current snapshot in Prometheus text
// exposition format.
func (m *Metrics) PrometheusFormat() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return `# HELP ledctrl_animation_fps Current observed animation frame rate
# TYPE ledctrl_animation_fps gauge
ledctrl_animation_fps ` + formatFloat64(m.AnimationFPS) + `

# HELP ledctrl_group_count Number of configured animation groups
# TYPE ledctrl_group_count gauge
ledctrl_group_count ` + formatInt64(m.GroupCount) + `

# HELP ledctrl_arbiter_state Current arbiter state (0=idle, 1=animating, 2=receiving_artnet)
# TYPE ledctrl_arbiter_state gauge
ledctrl_arbiter_state ` + formatInt64(m.ArbiterState) + `

# HELP ledctrl_strip_commits_total Total number of strip commits
# TYPE ledctrl_strip_commits_total counter
ledctrl_strip_commits_total ` + formatInt64(m.StripCommitsTotal) + `

# HELP ledctrl_strip_commit_time_ms Average strip commit latency in milliseconds
# TYPE ledctrl_strip_commit_time_ms gauge
ledctrl_strip_commit_time_ms ` + formatFloat64(m.AvgCommitTimeMs) + `

# HELP ledctrl_artnet_packets_total Total accepted Art-Net DMX frames
# TYPE ledctrl_artnet_packets_total counter
ledctrl_artnet_packets_total ` + formatInt64(m.ArtNetPacketsTotal) + `

# HELP ledctrl_artnet_dropped_total Total rejected or truncated Art-Net packets
# TYPE ledctrl_artnet_dropped_total counter
ledctrl_artnet_dropped_total ` + formatInt64(m.ArtNetDroppedTotal) + `

# HELP ledctrl_uptime_seconds Uptime in seconds
# TYPE ledctrl_uptime_seconds gauge
ledctrl_uptime_seconds ` + formatInt64(m.Uptime) + `

# HELP ledctrl_memory_used_bytes Memory used in bytes
# TYPE ledctrl_memory_used_bytes gauge
ledctrl_memory_used_bytes ` + formatUint64(m.MemoryUsed) + `

# HELP ledctrl_goroutines Number of goroutines
# TYPE ledctrl_goroutines gauge
ledctrl_goroutines ` + formatInt(m.GoroutineCount) + `

# HELP ledctrl_api_requests_total Total number of ingress HTTP requests
# TYPE ledctrl_api_requests_total counter
ledctrl_api_requests_total ` + formatInt64(m.TotalRequests) + `

# HELP ledctrl_api_errors_total Total number of ingress HTTP error responses
# TYPE ledctrl_api_errors_total counter
ledctrl_api_errors_total ` + formatInt64(m.TotalErrors) + `

# HELP ledctrl_api_response_time_ms Average API response time in milliseconds
# TYPE ledctrl_api_response_time_ms gauge
ledctrl_api_response_time_ms ` + formatFloat64(m.AvgResponseTime) + `
`
}

// MetricsMiddleware is a fiber middleware that records request count,
// error count, and response time for every ingress HTTP request.
func MetricsMiddleware(m *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		m.IncrementRequests()

		err := c.Next()

		duration := time.Since(start)
		m.RecordResponseTime(duration)

		if c.Response().StatusCode() >= 400 {
			m.IncrementErrors()
		}

		return err
	}
}

func formatInt64(n int64) string {
	return fmt.Sprintf("%d", n)
}

func formatUint64(n uint64) string {
	return fmt.Sprintf("%d", n)
}

func formatInt(n int) string {
	return fmt.Sprintf("%d", n)
}

func formatFloat64(n float64) string {
	return fmt.Sprintf("%.2f", n)
}
