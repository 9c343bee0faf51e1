package history

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-power/internal/power"
)

// Recorder defaults.
const (
	DefaultQueueSize     = 256
	DefaultPruneInterval = time.Hour

	// drainTimeout bounds the final flush of queued transitions on shutdown.
	drainTimeout = 5 * time.Second

	// writeTimeout bounds a single repository call.
	writeTimeout = 2 * time.Second
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Telemetry receives a copy of every transition. *influxdb.Client implements it.
type Telemetry interface {
	WritePowerState(deviceID, state, source string, at time.Time)
}

// Options configures a Recorder.
type Options struct {
	// QueueSize bounds the pending transitions. Zero means DefaultQueueSize.
	QueueSize int

	// Retention is how long entries are kept. Zero disables pruning.
	Retention time.Duration

	// PruneInterval is how often pruning runs. Zero means DefaultPruneInterval.
	PruneInterval time.Duration
}

// Stats holds the recorder's counters.
type Stats struct {
	Recorded uint64 `json:"recorded"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
	Pruned   uint64 `json:"pruned"`
}

// Recorder is a power.TransitionSink that persists transitions asynchronously.
//
// Record never blocks: when the queue is full the transition is dropped and
// counted. Run drains the queue until its context is cancelled, then flushes
// whatever is still queued.
type Recorder struct {
	repo      Repository
	telemetry Telemetry
	logger    Logger
	queue     chan power.Transition

	retention     time.Duration
	pruneInterval time.Duration

	recorded atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
	pruned   atomic.Uint64
}

var _ power.TransitionSink = (*Recorder)(nil)

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, opts Options) *Recorder {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	interval := opts.PruneInterval
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	return &Recorder{
		repo:          repo,
		logger:        noopLogger{},
		queue:         make(chan power.Transition, size),
		retention:     opts.Retention,
		pruneInterval: interval,
	}
}

// SetLogger sets the logger. Call before Run.
func (r *Recorder) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// SetTelemetry sets an optional time-series sink. Call before Run.
func (r *Recorder) SetTelemetry(t Telemetry) {
	r.telemetry = t
}

// Record queues a transition.
func (r *Recorder) Record(t power.Transition) {
	select {
	case r.queue <- t:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("history queue full, dropping transitions", "device_id", t.DeviceID)
		}
	}
}

// Stats returns a copy of the counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Pruned:   r.pruned.Load(),
	}
}

// Run writes queued transitions until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	var pruneC <-chan time.Time
	if r.retention > 0 {
		r.prune(ctx)
		ticker := time.NewTicker(r.pruneInterval)
		defer ticker.Stop()
		pruneC = ticker.C
	}

	for {
		select {
		case t := <-r.queue:
			r.write(t)
		case <-pruneC:
			r.prune(ctx)
		case <-ctx.Done():
			r.drain()
			return nil
		}
	}
}

func (r *Recorder) drain() {
	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) {
		select {
		case t := <-r.queue:
			r.write(t)
		default:
			return
		}
	}
	if n := len(r.queue); n > 0 {
		r.logger.Warn("history drain timed out", "remaining", n)
	}
}

// write persists one transition. It does not use Run's context so that
// transitions queued before shutdown are still written during the drain.
func (r *Recorder) write(t power.Transition) {
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}

	if r.telemetry != nil {
		r.telemetry.WritePowerState(t.DeviceID, t.To.String(), t.Source, t.At)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Record(ctx, t); err != nil {
		r.failed.Add(1)
		r.logger.Error("recording transition failed", "device_id", t.DeviceID, "error", err)
		return
	}
	r.recorded.Add(1)
}

func (r *Recorder) prune(ctx context.Context) {
	pruneCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	n, err := r.repo.Prune(pruneCtx, r.retention)
	if err != nil {
		r.logger.Warn("pruning history failed", "error", err)
		return
	}
	if n > 0 {
		r.pruned.Add(uint64(n))
		r.logger.Info("pruned history", "deleted", n, "retention", r.retention)
	}
}
