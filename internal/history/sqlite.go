package history

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-power/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-power/internal/power"
)

// timestampLayout is fixed width so that created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository implements Repository over the power_transitions table.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a transition. A zero At is stamped with the current time.
func (r *SQLiteRepository) Record(ctx context.Context, t power.Transition) error {
	if t.DeviceID == "" {
		return ErrInvalidDeviceID
	}
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO power_transitions (device_id, from_state, to_state, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.DeviceID, string(t.From), string(t.To), t.Source, formatTimestamp(at),
	)
	if err != nil {
		return fmt.Errorf("recording transition for %s: %w", t.DeviceID, err)
	}
	return nil
}

// List returns the newest entries for a device.
func (r *SQLiteRepository) List(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, from_state, to_state, source, created_at
		 FROM power_transitions
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", deviceID, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e         Entry
			from, to  string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &from, &to, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.From = power.State(from)
		e.To = power.State(to)
		if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return entries, nil
}

// Prune removes entries created more than olderThan ago.
// A non-positive olderThan removes nothing.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := formatTimestamp(time.Now().Add(-olderThan))

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM power_transitions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return n, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp accepts the fixed layout and any RFC 3339 value.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
