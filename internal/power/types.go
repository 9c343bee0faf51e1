package power

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// State is the power state of a single device.
type State string

// Valid device states.
const (
	StateOn      State = "On"
	StateOff     State = "Off"
	StatePending State = "Pending"
)

// IsValid reports whether s is one of the three known states.
func (s State) IsValid() bool {
	switch s {
	case StateOn, StateOff, StatePending:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, string(s))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState converts a case-insensitive state name into a State.
func ParseState(v string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on":
		return StateOn, nil
	case "off":
		return StateOff, nil
	case "pending":
		return StatePending, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidState, v)
	}
}

// Action is a user request to switch a device on or off.
type Action string

// Supported actions.
const (
	ActionOn  Action = "On"
	ActionOff Action = "Off"
)

// String implements fmt.Stringer.
func (a Action) String() string {
	return string(a)
}

// IsValid reports whether a is ActionOn or ActionOff.
func (a Action) IsValid() bool {
	return a == ActionOn || a == ActionOff
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, string(a))
	}
	return []byte(a), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Accepts "on"/"off" in any case.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts a case-insensitive action name into an Action.
func ParseAction(v string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on":
		return ActionOn, nil
	case "off":
		return ActionOff, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, v)
	}
}

// Message is an item on the actor's inbound queue.
// It is implemented only by Command and StatusUpdate.
type Message interface {
	isMessage()
}

// Command asks for a device to be switched. It originates from an ingress adapter.
type Command struct {
	DeviceID string `json:"id"`
	Action   Action `json:"cmd"`
}

func (Command) isMessage() {}

// StatusUpdate is a state reported by the device itself over the bus.
type StatusUpdate struct {
	DeviceID string
	State    State
}

func (StatusUpdate) isMessage() {}

// Snapshot is an immutable copy of the device table at one instant.
//
// The zero value is an empty snapshot. Accessors never expose the
// underlying map, so a Snapshot can be shared freely between goroutines.
type Snapshot struct {
	states map[string]State
}

// NewSnapshot copies states into a new Snapshot.
func NewSnapshot(states map[string]State) Snapshot {
	cp := make(map[string]State, len(states))
	for id, s := range states {
		cp[id] = s
	}
	return Snapshot{states: cp}
}

// Len returns the number of devices in the snapshot.
func (s Snapshot) Len() int {
	return len(s.states)
}

// Get returns the state of a device and whether it is known.
func (s Snapshot) Get(id string) (State, bool) {
	st, ok := s.states[id]
	return st, ok
}

// Has reports whether the device is present.
func (s Snapshot) Has(id string) bool {
	_, ok := s.states[id]
	return ok
}

// IDs returns the device identifiers in sorted order.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Map returns a fresh copy of the device states.
func (s Snapshot) Map() map[string]State {
	cp := make(map[string]State, len(s.states))
	for id, st := range s.states {
		cp[id] = st
	}
	return cp
}

// CountByState returns how many devices are in each state.
func (s Snapshot) CountByState() map[State]int {
	counts := make(map[State]int, 3)
	for _, st := range s.states {
		counts[st]++
	}
	return counts
}

// Equal reports whether two snapshots hold the same devices and states.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.states) != len(other.states) {
		return false
	}
	for id, st := range s.states {
		if o, ok := other.states[id]; !ok || o != st {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the snapshot as a plain {"id": "State"} object.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.states == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.states)
}
