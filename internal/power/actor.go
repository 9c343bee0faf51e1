package power

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the inbound queue capacity used when Options.QueueSize is zero.
const DefaultQueueSize = 64

// Transition sources.
const (
	SourceCommand = "command"
	SourceStatus  = "status"
)

// Logger defines the logging interface used by the Actor.
// Compatible with logging.Logger and slog.Logger.
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

// Transport is what the actor needs from the bus: an outbound control
// publisher and an inbound stream of decoded status updates.
// *BusAdapter implements it.
type Transport interface {
	PublishCommand(cmd Command) error
	Statuses(ctx context.Context) (<-chan StatusUpdate, error)
}

// Transition describes one change to the device table.
type Transition struct {
	DeviceID string
	From     State // empty when the device was just added
	To       State
	Source   string // SourceCommand or SourceStatus
	At       time.Time
}

// TransitionSink receives every applied transition, in order, from the actor
// goroutine. Implementations must not block.
type TransitionSink interface {
	Record(t Transition)
}

// Options configures an Actor.
type Options struct {
	// QueueSize bounds the inbound queue. Submissions beyond it are dropped.
	QueueSize int

	// Initial seeds the device table before any status is received.
	Initial map[string]State
}

// Stats holds the actor's counters.
type Stats struct {
	CommandsAccepted uint64 `json:"commands_accepted"`
	CommandsDropped  uint64 `json:"commands_dropped"`
	CommandsApplied  uint64 `json:"commands_applied"`
	CommandsRejected uint64 `json:"commands_rejected"`
	StatusesAccepted uint64 `json:"statuses_accepted"`
	StatusesDropped  uint64 `json:"statuses_dropped"`
	StatusesApplied  uint64 `json:"statuses_applied"`
	PublishFailures  uint64 `json:"publish_failures"`
}

type counters struct {
	commandsAccepted atomic.Uint64
	commandsDropped  atomic.Uint64
	commandsApplied  atomic.Uint64
	commandsRejected atomic.Uint64
	statusesAccepted atomic.Uint64
	statusesDropped  atomic.Uint64
	statusesApplied  atomic.Uint64
	publishFailures  atomic.Uint64
}

// Actor is the single writer of the device table.
//
// Commands and status updates are queued on a bounded channel and applied one
// at a time by Run. After each change the full table is copied into a Snapshot
// and handed to the Distributor before the next message is taken, so readers
// never see a state the actor did not hold.
//
// Thread Safety: Submit*, Snapshot, Observe and Stats are safe for concurrent
// use. The registry itself is touched only by the Run goroutine.
type Actor struct {
	transport Transport
	inbox     chan Message
	dist      *Distributor
	registry  map[string]State

	logger Logger
	sink   TransitionSink
	stats  counters

	running  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// NewActor creates an actor. It does nothing until Run is called, but
// submissions made before that are queued.
func NewActor(transport Transport, opts Options) *Actor {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}

	registry := make(map[string]State, len(opts.Initial))
	for id, st := range opts.Initial {
		if id == "" || !st.IsValid() {
			continue
		}
		registry[id] = st
	}

	return &Actor{
		transport: transport,
		inbox:     make(chan Message, size),
		dist:      NewDistributor(NewSnapshot(registry)),
		registry:  registry,
		logger:    noopLogger{},
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger. Must be called before Run.
func (a *Actor) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	a.logger = logger
}

// SetTransitionSink sets the receiver of applied transitions. Must be called before Run.
func (a *Actor) SetTransitionSink(sink TransitionSink) {
	a.sink = sink
}

// Distributor returns the distributor the actor publishes to.
func (a *Actor) Distributor() *Distributor {
	return a.dist
}

// Snapshot returns the latest published device table.
func (a *Actor) Snapshot() Snapshot {
	return a.dist.Current()
}

// Version returns the version of the latest published snapshot.
func (a *Actor) Version() uint64 {
	return a.dist.Version()
}

// Observe returns a cursor on the snapshot stream, positioned at the current value.
func (a *Actor) Observe() *Observer {
	return a.dist.Observe()
}

// Stats returns a copy of the actor's counters.
func (a *Actor) Stats() Stats {
	return Stats{
		CommandsAccepted: a.stats.commandsAccepted.Load(),
		CommandsDropped:  a.stats.commandsDropped.Load(),
		CommandsApplied:  a.stats.commandsApplied.Load(),
		CommandsRejected: a.stats.commandsRejected.Load(),
		StatusesAccepted: a.stats.statusesAccepted.Load(),
		StatusesDropped:  a.stats.statusesDropped.Load(),
		StatusesApplied:  a.stats.statusesApplied.Load(),
		PublishFailures:  a.stats.publishFailures.Load(),
	}
}

// SubmitCommand queues a user command. It returns false if the command is
// malformed, the queue is full or the actor has stopped. A true result only
// means the command was queued; it may still be rejected for an unknown device.
func (a *Actor) SubmitCommand(id string, action Action) bool {
	err := a.Submit(Command{DeviceID: id, Action: action})
	if err != nil {
		a.logger.Warn("command not accepted", "device_id", id, "action", action, "error", err)
		return false
	}
	return true
}

// SubmitStatus queues a status update with the same backpressure as commands.
func (a *Actor) SubmitStatus(update StatusUpdate) bool {
	return a.Submit(update) == nil
}

// Submit validates and queues a message without blocking.
//
// Returns:
//   - ErrInvalidDeviceID, ErrInvalidAction, ErrInvalidState for malformed messages
//   - ErrStopped if Run has returned
//   - ErrOverloaded if the queue is full
func (a *Actor) Submit(msg Message) error {
	switch m := msg.(type) {
	case Command:
		if m.DeviceID == "" {
			return ErrInvalidDeviceID
		}
		if !m.Action.IsValid() {
			return ErrInvalidAction
		}
	case StatusUpdate:
		if m.DeviceID == "" {
			return ErrInvalidDeviceID
		}
		if m.State != StateOn && m.State != StateOff {
			return ErrInvalidState
		}
	default:
		return ErrUnsupportedMessage
	}

	select {
	case <-a.done:
		return ErrStopped
	default:
	}

	select {
	case a.inbox <- msg:
		a.countAccepted(msg)
		return nil
	default:
		a.countDropped(msg)
		return ErrOverloaded
	}
}

// Run subscribes to device status and processes the queue until ctx is done.
//
// A failed subscription is fatal and returned wrapped in ErrSubscribeFailed.
// On return the distributor is closed so observers can finish.
func (a *Actor) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.stop()

	statuses, err := a.transport.Statuses(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	a.logger.Info("subscribed to device status", "topic", StatusTopicPattern)

	go a.forward(ctx, statuses)

	a.logger.Info("power actor started",
		"devices", len(a.registry),
		"queue_size", cap(a.inbox),
	)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("power actor stopped", "devices", len(a.registry))
			return nil
		case msg := <-a.inbox:
			a.handle(msg)
		}
	}
}

func (a *Actor) stop() {
	a.doneOnce.Do(func() {
		close(a.done)
		a.dist.Close()
	})
}

// forward moves decoded status updates from the bus stream into the inbox.
// It never touches the registry.
func (a *Actor) forward(ctx context.Context, updates <-chan StatusUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if err := a.Submit(update); err != nil {
				a.logger.Warn("status update dropped",
					"device_id", update.DeviceID,
					"state", update.State,
					"error", err,
				)
			}
		}
	}
}

// handle applies one message. It must only be called from Run.
func (a *Actor) handle(msg Message) {
	switch m := msg.(type) {
	case Command:
		a.applyCommand(m)
	case StatusUpdate:
		a.applyStatus(m)
	}
}

func (a *Actor) applyCommand(cmd Command) {
	current, ok := a.registry[cmd.DeviceID]
	if !ok {
		a.stats.commandsRejected.Add(1)
		a.logger.Warn("command rejected",
			"device_id", cmd.DeviceID,
			"action", cmd.Action,
			"error", ErrUnknownDevice,
		)
		return
	}

	a.registry[cmd.DeviceID] = StatePending
	a.stats.commandsApplied.Add(1)
	a.logger.Info("command applied", "device_id", cmd.DeviceID, "action", cmd.Action)

	// The Pending state stays even if the publish fails; a later status or
	// command resolves it.
	if err := a.transport.PublishCommand(cmd); err != nil {
		a.stats.publishFailures.Add(1)
		a.logger.Error("command publish failed",
			"device_id", cmd.DeviceID,
			"topic", CommandTopic(cmd.DeviceID),
			"error", err,
		)
	}

	if current != StatePending {
		a.commit(Transition{DeviceID: cmd.DeviceID, From: current, To: StatePending, Source: SourceCommand})
	}
}

func (a *Actor) applyStatus(update StatusUpdate) {
	previous, existed := a.registry[update.DeviceID]
	a.registry[update.DeviceID] = update.State
	a.stats.statusesApplied.Add(1)

	if !existed {
		a.logger.Info("new device added", "device_id", update.DeviceID, "state", update.State)
	}
	if existed && previous == update.State {
		return
	}
	a.logger.Debug("status applied", "device_id", update.DeviceID, "from", previous, "to", update.State)
	a.commit(Transition{DeviceID: update.DeviceID, From: previous, To: update.State, Source: SourceStatus})
}

// commit broadcasts the registry and reports the transition.
func (a *Actor) commit(t Transition) {
	a.dist.Publish(NewSnapshot(a.registry))
	if a.sink != nil {
		t.At = time.Now().UTC()
		a.sink.Record(t)
	}
}

func (a *Actor) countAccepted(msg Message) {
	switch msg.(type) {
	case Command:
		a.stats.commandsAccepted.Add(1)
	case StatusUpdate:
		a.stats.statusesAccepted.Add(1)
	}
}

func (a *Actor) countDropped(msg Message) {
	switch msg.(type) {
	case Command:
		a.stats.commandsDropped.Add(1)
	case StatusUpdate:
		a.stats.statusesDropped.Add(1)
	}
}
