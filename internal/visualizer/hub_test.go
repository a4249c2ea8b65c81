package visualizer

import (
	"testing"
	"time"

	"github.com/tiko09/ledctrl/internal/color"
)

func TestClampChannel(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{0.5, 128},
		{1, 255},
		{2, 255},
	}
	for _, c := range cases {
		if got := clampChannel(c.in); got != c.want {
			t.Errorf("clampChannel(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestHubPublishDoesNotBlockWithNoClients(t *testing.T) {
	h := NewHub()
	frame := []color.RGB{{R: 1, G: 0, B: 0}, {R: 0, G: 1, B: 0}}

	done := make(chan struct{})
	go func() {
		h.Publish(frame)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no consumer draining the broadcast channel")
	}
}

func TestHubBroadcastDeliversToRegisteredClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{ID: "test", Send: make(chan Message, 8), Hub: h}
	h.register <- client

	h.Broadcast(MessageTypeArbiterState, map[string]interface{}{"state": "animating"})

	msg := <-client.Send
	if msg.Type != MessageTypeArbiterState {
		t.Fatalf("Type = %v, want %v", msg.Type, MessageTypeArbiterState)
	}
}

func TestHubClientCount(t *testing.T) {
	h := NewHub()
	go h.Run()

	if h.ClientCount() != 0 {
		t.Fatal("expected 0 clients initially")
	}

	client := &Client{ID: "test", Send: make(chan Message, 8), Hub: h}
	h.register <- client
	time.Sleep(10 * time.Millisecond)

	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", h.ClientCount())
	}
}
