package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"apimon/internal/core"
)

func testConfig() *core.Config {
	return &core.Config{
		Server:   core.ServerConfig{Host: "127.0.0.1", Port: 0},
		Database: core.DatabaseConfig{Driver: core.DriverMemory},
		Monitor: core.MonitorConfig{
			DefaultInterval:       time.Hour,
			DefaultTimeout:        time.Second,
			HistorySize:           50,
			RetainedResults:       100,
			AlertHistorySize:      20,
			SlowThresholdMs:       1000,
			ErrorRateThreshold:    10,
			ErrorRateSampleSize:   20,
			StatusWindowHours:     24,
			SubscriberBuffer:      16,
			SnapshotHistoryPoints: 30,
			UserAgent:             "apimon-test",
		},
		Retention: core.RetentionConfig{Enabled: true, Days: 30, Schedule: "@every 1h"},
	}
}

func newTestServer(t *testing.T, config *core.Config) *Server {
	t.Helper()
	srv, err := New(context.Background(), config, core.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return srv
}

func TestHealthReflectsEngineState(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before init, got %d", rec.Code)
	}

	if err := srv.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 after init, got %d", rec.Code)
	}

	var body struct {
		Data struct {
			Status   string                        `json:"status"`
			Features map[string]core.FeatureStatus `json:"features"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if body.Data.Status != "ok" || len(body.Data.Features) != 3 {
		t.Errorf("Unexpected health body %+v", body.Data)
	}
	if body.Data.Features["notifications"].Enabled {
		t.Errorf("Expected notifications disabled by default")
	}
}

func TestRoutesAreMounted(t *testing.T) {
	srv := newTestServer(t, testConfig())
	if err := srv.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{"/api/endpoints", "/api/dashboard/stats", "/api/alerts", "/api/monitor/status", "/api/retention"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200 from %s, got %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "apimon_active_endpoints") {
		t.Errorf("Expected engine collectors in /metrics output")
	}
}

func TestSeedFile(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()

	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	seed := "endpoints:\n" +
		"  - name: Primary\n" +
		"    url: " + upstream.URL + "/a\n" +
		"  - name: Secondary\n" +
		"    url: " + upstream.URL + "/b\n" +
		"    method: HEAD\n" +
		"    expected_status_code: 200\n" +
		"    check_interval_ms: 60000\n"
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	config := testConfig()
	config.Monitor.SeedFile = path
	srv := newTestServer(t, config)
	if err := srv.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	endpoints := srv.monitor.Service().ListEndpoints()
	if len(endpoints) != 2 {
		t.Fatalf("Expected 2 seeded endpoints, got %d", len(endpoints))
	}
	if endpoints[1].Endpoint.Method != "HEAD" || endpoints[1].Endpoint.IntervalMs != 60000 {
		t.Errorf("Expected seed fields applied, got %+v", endpoints[1].Endpoint)
	}

	if err := srv.seedEndpoints(context.Background(), path); err != nil {
		t.Fatalf("Second seed failed: %v", err)
	}
	if got := len(srv.monitor.Service().ListEndpoints()); got != 2 {
		t.Errorf("Expected seeding skipped when endpoints exist, got %d", got)
	}
}

func TestLoadSeedFileErrors(t *testing.T) {
	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("endpoints: [unclosed"), 0o600)
	if _, err := LoadSeedFile(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
