// Package storage persists index snapshots to SQLite.
//
// A snapshot is the whole resolved forest of one indexing run: every symbol
// with its docs and position, every re-export edge with its resolved link, and
// the diagnostics. Loading a snapshot rebuilds an equivalent query.Index
// without re-reading the sources.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNoSnapshot is returned when the database holds no snapshot.
	ErrNoSnapshot = errors.New("no snapshot")
	// ErrLocked is returned when another process is writing a snapshot.
	ErrLocked = errors.New("snapshot database is locked by another writer")
)

// lockRetry is how often a blocked writer retries the file lock.
const lockRetry = 50 * time.Millisecond

// Store reads and writes snapshots. Writers take a file lock next to the
// database so concurrent indexers do not interleave.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Open opens or creates the database at dbPath, creating its directory and
// schema as needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	// _foreign_keys applies the pragma to every pooled connection.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := OpenDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.lock = flock.New(dbPath + ".lock")
	return s, nil
}

// OpenDB wraps an already open database, creating the schema if needed.
// Writes through a Store from OpenDB are not file-locked.
func OpenDB(db *sql.DB) (*Store, error) {
	// Enable foreign keys (required for cascade deletes)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}
	switch version {
	case "0":
		if err := CreateSchema(db); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	case SchemaVersion:
	default:
		return nil, fmt.Errorf("unsupported schema version %s (want %s)", version, SchemaVersion)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withWriteLock runs fn while holding the writer lock, if the store has one.
func (s *Store) withWriteLock(ctx context.Context, fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer s.lock.Unlock()
	return fn()
}
