// Package testutil provides helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/iliyamo/zone-explorer/internal/database"
)

// NewSQLite opens a migrated in-memory SQLite database that is closed when
// the test finishes.
func NewSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
