package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-power/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/influxdb"
)

// fakeInflux serves the two endpoints the client uses: /ping and /api/v2/write.
type fakeInflux struct {
	*httptest.Server

	mu      sync.Mutex
	lines   []string
	written chan struct{}
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{written: make(chan struct{}, 16)}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // Test server
		f.mu.Lock()
		for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if line != "" {
				f.lines = append(f.lines, line)
			}
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		select {
		case f.written <- struct{}{}:
		default:
		}
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) waitForLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		f.mu.Lock()
		if len(f.lines) >= n {
			out := append([]string(nil), f.lines...)
			f.mu.Unlock()
			return out
		}
		f.mu.Unlock()

		select {
		case <-f.written:
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %d lines", n)
		}
	}
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "powerd-test-token",
		Org:           "power",
		Bucket:        "telemetry",
		BatchSize:     1,
		FlushInterval: 1,
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := influxdb.Connect(testConfig("http://127.0.0.1:59999"))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	srv := newFakeInflux(t)
	cfg := testConfig(srv.URL)
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() with default batch settings error = %v", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWritePowerState(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	client.WritePowerState("node-0", "Pending", "command", at)
	client.WritePowerState("node-0", "On", "status", at.Add(time.Second))

	// Close sends whatever is still buffered.
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := srv.waitForLines(t, 2)

	wantParts := [][]string{
		{"power_state,", "device_id=node-0", "source=command", "state=Pending", "value=-1i"},
		{"power_state,", "device_id=node-0", "source=status", "state=On", "value=1i"},
	}
	for i, parts := range wantParts {
		for _, part := range parts {
			if !strings.Contains(lines[i], part) {
				t.Errorf("line %d = %q, missing %q", i, lines[i], part)
			}
		}
	}
}

func TestPowerStateValue(t *testing.T) {
	tests := map[string]int64{"On": 1, "Off": 0, "Pending": -1, "": -1}
	for state, want := range tests {
		if got := influxdb.PowerStateValue(state); got != want {
			t.Errorf("PowerStateValue(%q) = %d, want %d", state, got, want)
		}
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestClose(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Writes after Close are dropped.
	client.WritePowerState("node-0", "On", "status", time.Now())
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	client := &influxdb.Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
	client.WritePowerState("node-0", "On", "status", time.Now())
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() on zero client error = %v, want ErrNotConnected", err)
	}
}
