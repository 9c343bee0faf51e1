package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-power/internal/history"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-power/internal/power"
)

// fakeTransport implements power.Transport without a broker.
type fakeTransport struct {
	mu        sync.Mutex
	published []power.Command
	statuses  chan power.StatusUpdate
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{statuses: make(chan power.StatusUpdate)}
}

func (f *fakeTransport) PublishCommand(cmd power.Command) error {
	f.mu.Lock()
	f.published = append(f.published, cmd)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Statuses(context.Context) (<-chan power.StatusUpdate, error) {
	return f.statuses, nil
}

func (f *fakeTransport) commands() []power.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]power.Command(nil), f.published...)
}

// report delivers a device status as if it came from the bus.
func (f *fakeTransport) report(t *testing.T, id string, st power.State) {
	t.Helper()
	select {
	case f.statuses <- power.StatusUpdate{DeviceID: id, State: st}:
	case <-time.After(2 * time.Second):
		t.Fatalf("status %s=%s not taken by actor", id, st)
	}
}

// stubPower is a PowerService with canned results.
type stubPower struct {
	snap      power.Snapshot
	submitErr error
	stats     power.Stats
	version   uint64
	dist      *power.Distributor
}

func (p *stubPower) Submit(power.Message) error { return p.submitErr }
func (p *stubPower) Snapshot() power.Snapshot   { return p.snap }
func (p *stubPower) Stats() power.Stats         { return p.stats }
func (p *stubPower) Version() uint64            { return p.version }
func (p *stubPower) Observe() *power.Observer {
	if p.dist == nil {
		p.dist = power.NewDistributor(p.snap)
	}
	return p.dist.Observe()
}

// stubHistory is a HistoryReader with canned entries.
type stubHistory struct {
	entries   []history.Entry
	err       error
	lastLimit int
}

func (h *stubHistory) List(_ context.Context, _ string, limit int) ([]history.Entry, error) {
	h.lastLimit = limit
	if h.err != nil {
		return nil, h.err
	}
	return append([]history.Entry(nil), h.entries...), nil
}

type stubRecorder struct{ stats history.Stats }

func (r stubRecorder) Stats() history.Stats { return r.stats }

type stubConn struct{ connected bool }

func (c stubConn) IsConnected() bool { return c.connected }

type stubDB struct{}

func (stubDB) Stats() sql.DBStats { return sql.DBStats{OpenConnections: 1, Idle: 1} }

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, logging.ServicePowerd, "test")
}

func testDeps(p PowerService) Deps {
	return Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  testLogger(),
		Power:   p,
		Version: "test",
	}
}

// startActor runs a real actor over a fake transport until the test ends.
func startActor(t *testing.T, initial map[string]power.State) (*power.Actor, *fakeTransport, context.CancelFunc) {
	t.Helper()

	transport := newFakeTransport()
	actor := power.NewActor(transport, power.Options{QueueSize: 16, Initial: initial})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := actor.Run(ctx); err != nil {
			t.Errorf("actor.Run() error = %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return actor, transport, cancel
}

// testServer creates a Server backed by a running actor seeded with node-0 Off.
func testServer(t *testing.T, mutate ...func(*Deps)) (*Server, *power.Actor, *fakeTransport) {
	t.Helper()

	actor, transport, _ := startActor(t, map[string]power.State{"node-0": power.StateOff})
	deps := testDeps(actor)
	for _, m := range mutate {
		m(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() }) //nolint:errcheck // Test cleanup
	return srv, actor, transport
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

var httpClient = &http.Client{Timeout: 5 * time.Second}
