package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to the metadata table when the schema is created.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes for index snapshots.
// Uses a transaction so schema creation succeeds or fails as a whole.
//
// A snapshot owns its symbols, re-export edges and diagnostics; deleting the
// snapshot row cascades to them. Must be called with PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"metadata", createMetadataTable},
		{"snapshots", createSnapshotsTable},
		{"symbols", createSymbolsTable},
		{"reexports", createReExportsTable},
		{"diagnostics", createDiagnosticsTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`INSERT INTO metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`, SchemaVersion, now); err != nil {
		return fmt.Errorf("failed to bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the stored schema version, or "0" for a new database.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil // New database
	}

	var version string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS metadata (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS snapshots (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id  TEXT NOT NULL UNIQUE,
	created_at   TEXT NOT NULL,
	units        TEXT NOT NULL,
	symbol_count INTEGER NOT NULL
)`

// Symbols are numbered in depth-first order, so a parent always has a lower
// symbol_id than its children and ordering by symbol_id restores source order.
const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
	snapshot_id     TEXT NOT NULL REFERENCES snapshots(snapshot_id) ON DELETE CASCADE,
	symbol_id       INTEGER NOT NULL,
	parent_id       INTEGER,
	kind            TEXT NOT NULL,
	name            TEXT NOT NULL,
	qualified_name  TEXT NOT NULL,
	visibility      INTEGER NOT NULL,
	visibility_text TEXT NOT NULL,
	generics        TEXT NOT NULL,
	signature       TEXT NOT NULL,
	attributes      TEXT NOT NULL,
	doc             TEXT,
	inner_doc       TEXT NOT NULL,
	text            TEXT NOT NULL,
	patterns        TEXT NOT NULL,
	self_type       TEXT NOT NULL,
	trait           TEXT NOT NULL,
	unit            TEXT NOT NULL,
	start_line      INTEGER NOT NULL,
	end_line        INTEGER NOT NULL,
	start_offset    INTEGER NOT NULL,
	end_offset      INTEGER NOT NULL,
	module_path     TEXT,
	module_units    TEXT,
	module_decl     INTEGER,
	PRIMARY KEY (snapshot_id, symbol_id)
)`

const createReExportsTable = `
CREATE TABLE IF NOT EXISTS reexports (
	snapshot_id  TEXT NOT NULL REFERENCES snapshots(snapshot_id) ON DELETE CASCADE,
	edge_id      INTEGER NOT NULL,
	module_id    INTEGER NOT NULL,
	name         TEXT NOT NULL,
	path         TEXT NOT NULL,
	glob         INTEGER NOT NULL,
	visibility   INTEGER NOT NULL,
	doc          TEXT NOT NULL,
	unit         TEXT NOT NULL,
	start_line   INTEGER NOT NULL,
	end_line     INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	target_id    INTEGER,
	next_id      INTEGER,
	PRIMARY KEY (snapshot_id, edge_id)
)`

const createDiagnosticsTable = `
CREATE TABLE IF NOT EXISTS diagnostics (
	snapshot_id  TEXT NOT NULL REFERENCES snapshots(snapshot_id) ON DELETE CASCADE,
	ordinal      INTEGER NOT NULL,
	severity     INTEGER NOT NULL,
	code         TEXT NOT NULL,
	unit         TEXT NOT NULL,
	start_line   INTEGER NOT NULL,
	end_line     INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	message      TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, ordinal)
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_symbols_qualified_name ON symbols(snapshot_id, qualified_name)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(snapshot_id, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_diagnostics_code ON diagnostics(snapshot_id, code)`,
}
