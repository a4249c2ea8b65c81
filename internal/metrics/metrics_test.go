package metrics

import (
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.startTime.IsZero() {
		t.Error("Start time not set")
	}
}

func TestSetAnimationFPS(t *testing.T) {
	m := NewMetrics()
	m.SetAnimationFPS(59.8)
	if m.AnimationFPS != 59.8 {
		t.Errorf("Expected AnimationFPS to be 59.8, got %v", m.AnimationFPS)
	}
}

func TestSetArbiterState(t *testing.T) {
	m := NewMetrics()
	m.SetArbiterState(2)
	if m.ArbiterState != 2 {
		t.Errorf("Expected ArbiterState to be 2, got %d", m.ArbiterState)
	}
}

func TestSetGroupCount(t *testing.T) {
	m := NewMetrics()
	m.SetGroupCount(5)
	if m.GroupCount != 5 {
		t.Errorf("Expected GroupCount to be 5, got %d", m.GroupCount)
	}
}

func TestIncrementStripCommits(t *testing.T) {
	m := NewMetrics()
	m.IncrementStripCommits()
	m.IncrementStripCommits()
	if m.StripCommitsTotal != 2 {
		t.Errorf("Expected StripCommitsTotal to be 2, got %d", m.StripCommitsTotal)
	}
}

func TestRecordCommitTime(t *testing.T) {
	m := NewMetrics()
	m.RecordCommitTime(2 * time.Millisecond)
	if m.AvgCommitTimeMs == 0 {
		t.Error("Expected AvgCommitTimeMs to be set")
	}
	first := m.AvgCommitTimeMs
	m.RecordCommitTime(4 * time.Millisecond)
	if m.AvgCommitTimeMs == first {
		t.Error("Expected AvgCommitTimeMs to change")
	}
}

func TestIncrementArtNetPacketsAndDropped(t *testing.T) {
	m := NewMetrics()
	m.IncrementArtNetPackets()
	m.IncrementArtNetPackets()
	m.IncrementArtNetDropped()

	if m.ArtNetPacketsTotal != 2 {
		t.Errorf("Expected ArtNetPacketsTotal to be 2, got %d", m.ArtNetPacketsTotal)
	}
	if m.ArtNetDroppedTotal != 1 {
		t.Errorf("Expected ArtNetDroppedTotal to be 1, got %d", m.ArtNetDroppedTotal)
	}
}

func TestRecordResponseTime(t *testing.T) {
	m := NewMetrics()

	m.RecordResponseTime(100 * time.Millisecond)
	if m.AvgResponseTime == 0 {
		t.Error("Expected AvgResponseTime to be set")
	}

	first := m.AvgResponseTime
	m.RecordResponseTime(200 * time.Millisecond)
	if m.AvgResponseTime == first {
		t.Error("Expected AvgResponseTime to change")
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	m := NewMetrics()
	time.Sleep(1100 * time.Millisecond)

	m.UpdateSystemMetrics()

	if m.Uptime == 0 {
		t.Error("Expected Uptime to be greater than 0")
	}
	if m.MemoryUsed == 0 {
		t.Error("Expected MemoryUsed to be greater than 0")
	}
	if m.GoroutineCount == 0 {
		t.Error("Expected GoroutineCount to be greater than 0")
	}
}

func TestGetMetrics(t *testing.T) {
	m := NewMetrics()
	m.SetAnimationFPS(60)
	m.SetGroupCount(3)
	m.IncrementArtNetPackets()

	metrics := m.GetMetrics()

	if metrics == nil {
		t.Fatal("GetMetrics returned nil")
	}

	animation, ok := metrics["animation"].(map[string]interface{})
	if !ok {
		t.Fatal("animation not found in metrics")
	}
	if animation["fps"] != 60.0 {
		t.Errorf("Expected animation.fps to be 60, got %v", animation["fps"])
	}
	if animation["group_count"] != int64(3) {
		t.Errorf("Expected animation.group_count to be 3, got %v", animation["group_count"])
	}

	artnet, ok := metrics["artnet"].(map[string]interface{})
	if !ok {
		t.Fatal("artnet not found in metrics")
	}
	if artnet["packets_total"] != int64(1) {
		t.Errorf("Expected artnet.packets_total to be 1, got %v", artnet["packets_total"])
	}
}

func TestPrometheusFormat(t *testing.T) {
	m := NewMetrics()
	m.SetAnimationFPS(60)
	m.IncrementArtNetPackets()

	prometheus := m.PrometheusFormat()

	if prometheus == "" {
		t.Error("PrometheusFormat returned empty string")
	}

	if !contains(prometheus, "ledctrl_animation_fps") {
		t.Error("Expected ledctrl_animation_fps in Prometheus output")
	}
	if !contains(prometheus, "ledctrl_artnet_packets_total") {
		t.Error("Expected ledctrl_artnet_packets_total in Prometheus output")
	}
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// Benchmark tests
func BenchmarkSetAnimationFPS(b *testing.B) {
	m := NewMetrics()
	for i := 0; i < b.N; i++ {
		m.SetAnimationFPS(60)
	}
}

func BenchmarkRecordResponseTime(b *testing.B) {
	m := NewMetrics()
	for i := 0; i < b.N; i++ {
		m.RecordResponseTime(100 * time.Millisecond)
	}
}

func BenchmarkGetMetrics(b *testing.B) {
	m := NewMetrics()
	m.SetAnimationFPS(60)
	m.IncrementArtNetPackets()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.GetMetrics()
	}
}
