package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t,
		"zx:secret@tcp(db:3306)/zones?charset=utf8mb4&parseTime=true&loc=UTC",
		MySQLDSN("zx", "secret", "db", "3306", "zones"))
	assert.Equal(t,
		"zx@tcp(db:3306)/zones?charset=utf8mb4&parseTime=true&loc=UTC",
		MySQLDSN("zx", "", "db", "3306", "zones"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", "dsn")
	assert.Error(t, err)
}

func TestMigrate_SQLite(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, DriverSQLite))
	// idempotent
	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('visits', 'prize_draw')`).Scan(&n))
	assert.Equal(t, 2, n)

	assert.Error(t, Migrate(ctx, db, "oracle"))
}
