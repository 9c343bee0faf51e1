package migrations

import (
	"context"
	"testing"

	"github.com/nerrad567/gray-logic-power/internal/infrastructure/database"
)

func TestEmbeddedMigrationsApply(t *testing.T) {
	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var version string
	if err := db.QueryRowContext(ctx,
		"SELECT version FROM schema_migrations WHERE name = 'power_history'").Scan(&version); err != nil {
		t.Fatalf("power_history not recorded: %v", err)
	}
	if version != "20261019_120000" {
		t.Errorf("version = %q, want 20261019_120000", version)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO power_transitions (device_id, from_state, to_state, source, created_at)
		 VALUES ('node-0', 'Off', 'Pending', 'command', '2026-10-19T12:00:00.000000000Z')`,
	); err != nil {
		t.Fatalf("insert into power_transitions: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO power_transitions (device_id, to_state, source, created_at)
		 VALUES ('node-0', 'Dimmed', 'status', '2026-10-19T12:00:00Z')`,
	); err == nil {
		t.Error("insert with invalid to_state succeeded, want CHECK failure")
	}

	if err := db.Migrate(ctx); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}
