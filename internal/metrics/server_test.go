package metrics

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.MetricsPath != "/metrics" {
		t.Errorf("MetricsPath = %s, want /metrics", cfg.MetricsPath)
	}
	if cfg.HealthPath != "/health" {
		t.Errorf("HealthPath = %s, want /health", cfg.HealthPath)
	}
}

func TestServer_HealthHandler(t *testing.T) {
	cfg := DefaultServerConfig()
	server := NewServer(cfg, nil)

	// Register a healthy check
	server.RegisterHealthCheck("test", func() Check {
		return Check{Status: StatusHealthy, Message: "all good"}
	})

	// Create test request
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.healthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}

	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if status.Status != "healthy" {
		t.Errorf("status = %s, want healthy", status.Status)
	}
	if len(status.Checks) != 1 {
		t.Errorf("checks count = %d, want 1", len(status.Checks))
	}
	if status.Checks["test"].Status != "healthy" {
		t.Errorf("test check status = %s, want healthy", status.Checks["test"].Status)
	}
}

func TestServer_HealthHandler_Unhealthy(t *testing.T) {
	cfg := DefaultServerConfig()
	server := NewServer(cfg, nil)

	// Register an unhealthy check
	server.RegisterHealthCheck("failing", func() Check {
		return Check{Status: StatusUnhealthy, Message: "source unavailable"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.healthHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if status.Status != "unhealthy" {
		t.Errorf("status = %s, want unhealthy", status.Status)
	}
}

func TestServer_ReadyHandler(t *testing.T) {
	cfg := DefaultServerConfig()
	server := NewServer(cfg, nil)

	// Register healthy check
	server.RegisterHealthCheck("ready", func() Check {
		return Check{Status: StatusHealthy}
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	server.readyHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "ready" {
		t.Errorf("body = %s, want ready", w.Body.String())
	}
}

func TestServer_ReadyHandler_NotReady(t *testing.T) {
	cfg := DefaultServerConfig()
	server := NewServer(cfg, nil)

	// Register unhealthy check
	server.RegisterHealthCheck("not_ready", func() Check {
		return Check{Status: StatusUnhealthy}
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	server.readyHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestServer_LiveHandler(t *testing.T) {
	cfg := DefaultServerConfig()
	server := NewServer(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()

	server.liveHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "alive" {
		t.Errorf("body = %s, want alive", w.Body.String())
	}
}

func TestServer_Uptime(t *testing.T) {
	cfg := DefaultServerConfig()
	server := NewServer(cfg, nil)

	time.Sleep(10 * time.Millisecond)

	uptime := server.Uptime()
	if uptime < 10*time.Millisecond {
		t.Errorf("uptime = %v, expected >= 10ms", uptime)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	cfg := ServerConfig{
		Port:        0, // Any free port
		MetricsPath: "/metrics",
		HealthPath:  "/health",
	}
	server := NewServer(cfg, nil)
	server.RegisterHealthCheck("engine", func() Check {
		return Check{Status: StatusHealthy}
	})

	// Start server
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, port, err := net.SplitHostPort(server.Addr())
	if err != nil {
		t.Fatalf("split addr %q: %v", server.Addr(), err)
	}
	base := "http://127.0.0.1:" + port

	for _, path := range []string{"/live", "/ready", "/health", "/metrics"} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}

	// Shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cfg := DefaultServerConfig()
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	server := NewServer(cfg, nil)

	if err := server.Start(); err == nil {
		t.Error("Start() on a bound port should fail")
		_ = server.Shutdown(context.Background())
	}
}

func TestServer_RegisterMultipleChecks(t *testing.T) {
	cfg := DefaultServerConfig()
	server := NewServer(cfg, nil)

	server.RegisterHealthCheck("check1", func() Check {
		return Check{Status: StatusHealthy}
	})
	server.RegisterHealthCheck("check2", func() Check {
		return Check{Status: StatusHealthy}
	})
	server.RegisterHealthCheck("check3", func() Check {
		return Check{Status: "degraded", Message: "slow"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.healthHandler(w, req)

	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(status.Checks) != 3 {
		t.Errorf("checks count = %d, want 3", len(status.Checks))
	}
}
