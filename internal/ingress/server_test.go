package ingress

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tiko09/ledctrl/internal/health"
	"github.com/tiko09/ledctrl/internal/metrics"
	"github.com/tiko09/ledctrl/internal/settings"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	store := settings.NewStore(settings.DefaultState())
	m := metrics.NewMetrics()
	checker := health.NewHealthChecker()
	return New(cfg, store, m, checker, zap.NewNop())
}

func TestHealthzReturnsOK(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsReturnsJSON(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSettingsPatchRequiresAPIKeyWhenConfigured(t *testing.T) {
	s := newTestServer(t, Config{APIKeyHash: HashAPIKey("secret")})

	body := bytes.NewBufferString(`{"brightness": 0.5}`)
	req := httptest.NewRequest(http.MethodPost, "/settings/", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSettingsPatchAppliesWithValidAPIKey(t *testing.T) {
	s := newTestServer(t, Config{APIKeyHash: HashAPIKey("secret")})

	body := bytes.NewBufferString(`{"brightness": 0.5}`)
	req := httptest.NewRequest(http.MethodPost, "/settings/", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSettingsPatchOpenWithoutAuthConfigured(t *testing.T) {
	s := newTestServer(t, Config{})

	body := bytes.NewBufferString(`{"brightness": 0.25}`)
	req := httptest.NewRequest(http.MethodPost, "/settings/", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestShutdownWithinDeadline(t *testing.T) {
	s := newTestServer(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
