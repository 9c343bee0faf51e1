package history

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-power/internal/power"
)

// Query limits for Repository.List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ErrInvalidDeviceID is returned when a query or record has no device id.
var ErrInvalidDeviceID = errors.New("history: device id cannot be empty")

// Entry is one stored transition.
type Entry struct {
	ID        int64       `json:"id"`
	DeviceID  string      `json:"device_id"`
	From      power.State `json:"from,omitempty"`
	To        power.State `json:"to"`
	Source    string      `json:"source"`
	CreatedAt time.Time   `json:"created_at"`
}

// Repository stores and queries transitions.
type Repository interface {
	// Record appends one transition.
	Record(ctx context.Context, t power.Transition) error

	// List returns up to limit entries for a device, newest first.
	// A limit of zero or less means DefaultLimit; larger than MaxLimit is clamped.
	List(ctx context.Context, deviceID string, limit int) ([]Entry, error)

	// Prune deletes entries older than olderThan and returns how many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
