// Package database provides SQLite connectivity for powerd.
//
// The database holds only the power transition log; the live device table
// is in memory and never restored from here.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations from an fs.FS (embedded by the migrations package)
//   - Connection pool settings suited to SQLite's single writer
//
// Usage:
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations only move forward. Each is a YYYYMMDD_HHMMSS_description.up.sql
// file, applied once and recorded in the schema_migrations table.
package database
