package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// NewTestStore creates a Store over an in-memory SQLite database with the
// schema in place. The database is closed by t.Cleanup.
//
// An in-memory database lives in a single connection, so the pool is limited
// to one.
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := OpenDB(db)
	require.NoError(t, err)
	return s
}

// NewTestStoreFile creates a file-backed Store in t.TempDir(), with the
// writer lock enabled. Returns the store and its database path.
func NewTestStoreFile(t testing.TB) (*Store, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dbPath
}
