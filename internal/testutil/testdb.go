// Package testutil provides shared test fixtures.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/relicmirror/relicmirror/internal/database"
)

// TestDB is a migrated throwaway SQLite database for tests.
type TestDB struct {
	Conn   *sql.DB
	Logger zerolog.Logger

	db *database.DB
}

// NewTestDB creates a fresh database under t.TempDir with all migrations
// applied.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("migrate test database: %v", err)
	}

	return &TestDB{
		Conn:   db.Conn(),
		Logger: zerolog.Nop(),
		db:     db,
	}
}

// Close releases the database.
func (tdb *TestDB) Close() {
	tdb.db.Close()
}
