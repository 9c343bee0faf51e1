package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MigrationsFS holds the migration files. The top-level migrations package
// sets it on import; nil means there is nothing to apply.
//
//	import _ "github.com/nerrad567/gray-logic-power/migrations"
var MigrationsFS fs.FS

// MigrationsDir is the directory inside MigrationsFS holding the files.
var MigrationsDir = "migrations"

// upSuffix marks a forward migration. Migrations only move forward; a schema
// change is undone by a newer migration.
const upSuffix = ".up.sql"

const createSchemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`

// migration is one forward schema change read from MigrationsFS.
type migration struct {
	version string // YYYYMMDD_HHMMSS
	name    string
	sql     string
}

// Migrate applies every migration not yet recorded in schema_migrations, in
// version order. Each migration commits on its own, so a failure leaves the
// earlier ones applied and a rerun resumes at the failed one.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, createSchemaMigrations); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	all, err := loadMigrations(MigrationsFS, MigrationsDir)
	if err != nil {
		return err
	}
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range all {
		if applied[m.version] {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	return applied, nil
}

func (db *DB) apply(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// loadMigrations reads every *.up.sql file in dir, sorted by version.
// Other files are ignored; a malformed name or a repeated version is an error.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	if fsys == nil {
		return nil, nil
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*"+upSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	seen := make(map[string]string, len(files))
	out := make([]migration, 0, len(files))
	for _, file := range files {
		base := path.Base(file)
		version, name, ok := splitMigrationName(base)
		if !ok {
			return nil, fmt.Errorf("malformed migration filename %q (want YYYYMMDD_HHMMSS_name%s)", base, upSuffix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %q and %q share version %s", prev, base, version)
		}
		seen[version] = base

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", base, err)
		}
		out = append(out, migration{version: version, name: name, sql: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// splitMigrationName parses "20261019_120000_power_history.up.sql" into
// version "20261019_120000" and name "power_history".
func splitMigrationName(file string) (version, name string, ok bool) {
	stem, found := strings.CutSuffix(file, upSuffix)
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(stem, "_", 3)
	if len(parts) != 3 || len(parts[0]) != 8 || len(parts[1]) != 6 || parts[2] == "" {
		return "", "", false
	}
	for _, r := range parts[0] + parts[1] {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}
	return parts[0] + "_" + parts[1], parts[2], true
}
