package mqttstatus

import "testing"

func TestStatusTopicBuildsDeviceScopedPath(t *testing.T) {
	cfg := Config{TopicBase: "ledctrl/status", DeviceID: "strip-01"}

	got := statusTopic(cfg, "fps")
	want := "ledctrl/status/strip-01/fps"
	if got != want {
		t.Fatalf("statusTopic = %q, want %q", got, want)
	}
}

func TestStatusTopicWithDefaultTopicBase(t *testing.T) {
	cfg := Config{DeviceID: "strip-02"}
	if cfg.TopicBase != "" {
		t.Fatalf("precondition: TopicBase should start empty")
	}

	cfg.TopicBase = "ledctrl/status"
	got := statusTopic(cfg, "arbiter_state")
	want := "ledctrl/status/strip-02/arbiter_state"
	if got != want {
		t.Fatalf("statusTopic = %q, want %q", got, want)
	}
}
