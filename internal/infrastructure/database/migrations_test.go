package database

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
)

// useMigrations swaps the package migration source for the test.
func useMigrations(t *testing.T, fsys fstest.MapFS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	if fsys == nil {
		MigrationsFS = nil
	} else {
		MigrationsFS = fsys
	}
	MigrationsDir = dir
}

func sqlFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func countRows(t *testing.T, db *DB, query string) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), query).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

func TestMigrate(t *testing.T) {
	// The second migration depends on the first, so order matters.
	useMigrations(t, fstest.MapFS{
		"sql/20261019_090000_devices.up.sql":   sqlFile("CREATE TABLE devices (id TEXT PRIMARY KEY);"),
		"sql/20261019_100000_state.up.sql":     sqlFile("ALTER TABLE devices ADD COLUMN state TEXT;"),
		"sql/20261019_090000_devices.down.sql": sqlFile("DROP TABLE devices;"),
		"sql/README.md":                        sqlFile("ignored"),
	}, "sql")

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO devices (id, state) VALUES ('node-0', 'Off')"); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 2 {
		t.Errorf("schema_migrations rows = %d, want 2", n)
	}

	var name string
	if err := db.QueryRowContext(ctx,
		"SELECT name FROM schema_migrations WHERE version = '20261019_100000'").Scan(&name); err != nil || name != "state" {
		t.Errorf("recorded name = %q (%v), want state", name, err)
	}

	// A rerun applies nothing; the ALTER would fail if it ran twice.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureKeepsEarlier(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20261019_090000_good.up.sql": sqlFile("CREATE TABLE good (id INTEGER);"),
		"20261019_100000_bad.up.sql":  sqlFile("CREATE TABLE half (id INTEGER); NOT SQL;"),
	}, ".")

	db := openTestDB(t)

	err := db.Migrate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "20261019_100000") {
		t.Fatalf("Migrate() error = %v, want failure naming the bad migration", err)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 1 {
		t.Errorf("schema_migrations rows = %d, want 1", n)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'half'"); n != 0 {
		t.Error("failed migration left table half behind")
	}
}

func TestMigrate_NoMigrations(t *testing.T) {
	useMigrations(t, nil, ".")

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestLoadMigrations_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{"malformed name", fstest.MapFS{"power.up.sql": sqlFile("")}, "malformed"},
		{"short version", fstest.MapFS{"2026_1200_x.up.sql": sqlFile("")}, "malformed"},
		{"duplicate version", fstest.MapFS{
			"20261019_090000_a.up.sql": sqlFile(""),
			"20261019_090000_b.up.sql": sqlFile(""),
		}, "share version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMigrations(tt.fsys, ".")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("loadMigrations() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSplitMigrationName(t *testing.T) {
	tests := []struct {
		file    string
		version string
		name    string
		ok      bool
	}{
		{"20261019_120000_power_history.up.sql", "20261019_120000", "power_history", true},
		{"20261019_120000_power_history.down.sql", "", "", false},
		{"20261019_120000.up.sql", "", "", false},
		{"2026101a_120000_x.up.sql", "", "", false},
		{"20261019_120000_.up.sql", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, ok := splitMigrationName(tt.file)
			if version != tt.version || name != tt.name || ok != tt.ok {
				t.Errorf("splitMigrationName(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.file, version, name, ok, tt.version, tt.name, tt.ok)
			}
		})
	}
}
