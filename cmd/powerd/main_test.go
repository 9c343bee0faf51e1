package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-power/internal/power"
)

const baseConfig = `
site:
  id: test-site

database:
  path: "%DB%"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    client_id: "powerd-test"
  qos: 1

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18080
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	content = strings.ReplaceAll(content, "%DB%", filepath.Join(dir, "powerd.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("POWERD_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

// TestRun_MissingDatabasePath verifies validation rejects an empty database path.
func TestRun_MissingDatabasePath(t *testing.T) {
	cfg := strings.Replace(baseConfig, `path: "%DB%"`, `path: ""`, 1)
	t.Setenv("POWERD_CONFIG", writeConfig(t, cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("run() error = %v, want database.path validation error", err)
	}
}

// TestRun_InvalidInitialDevice verifies a bad seed state is rejected before anything starts.
func TestRun_InvalidInitialDevice(t *testing.T) {
	cfg := baseConfig + `
power:
  queue_size: 16
  initial_devices:
    node-0: "Dimmed"
`
	t.Setenv("POWERD_CONFIG", writeConfig(t, cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid initial state")
	}
	if !strings.Contains(err.Error(), "node-0") {
		t.Errorf("run() error = %v, want it to name the device", err)
	}
}

// TestRun_BrokerUnreachable verifies run fails when the broker cannot be reached.
func TestRun_BrokerUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the MQTT connect timeout")
	}
	t.Setenv("POWERD_CONFIG", writeConfig(t, baseConfig))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with unreachable broker")
	}
	if !strings.Contains(err.Error(), "MQTT") {
		t.Errorf("run() error = %v, want MQTT connection error", err)
	}
}

// TestGetConfigPath verifies config path resolution.
func TestGetConfigPath(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		t.Setenv("POWERD_CONFIG", "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("POWERD_CONFIG", "/custom/path/config.yaml")
		if got := getConfigPath(); got != "/custom/path/config.yaml" {
			t.Errorf("getConfigPath() = %q, want %q", got, "/custom/path/config.yaml")
		}
	})
}

func TestInitialDevices(t *testing.T) {
	got, err := initialDevices(map[string]string{
		"node-0": "Off",
		"node-1": "on",
		"node-2": " PENDING ",
	})
	if err != nil {
		t.Fatalf("initialDevices() error = %v", err)
	}

	want := map[string]power.State{
		"node-0": power.StateOff,
		"node-1": power.StateOn,
		"node-2": power.StatePending,
	}
	if len(got) != len(want) {
		t.Fatalf("initialDevices() = %v, want %v", got, want)
	}
	for id, st := range want {
		if got[id] != st {
			t.Errorf("initialDevices()[%s] = %q, want %q", id, got[id], st)
		}
	}
}

func TestInitialDevices_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
		want error
	}{
		{"bad state", map[string]string{"node-0": "dim"}, power.ErrInvalidState},
		{"empty id", map[string]string{"": "On"}, power.ErrInvalidDeviceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := initialDevices(tt.raw); !errors.Is(err, tt.want) {
				t.Errorf("initialDevices() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInitialDevices_Empty(t *testing.T) {
	got, err := initialDevices(nil)
	if err != nil {
		t.Fatalf("initialDevices(nil) error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("initialDevices(nil) = %v, want empty map", got)
	}
}
