package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The two logical tables of the game.  There are no foreign keys and no
// unique constraints: repeated visits are expected and duplicate prize
// entries are guarded by the service layer.
var schema = map[string][]string{
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS visits (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id VARCHAR(320) NOT NULL,
			zone VARCHAR(64) NOT NULL,
			timestamp DATETIME(6) NOT NULL,
			INDEX idx_visits_user_zone_ts (user_id, zone, timestamp),
			INDEX idx_visits_ts (timestamp)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS prize_draw (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id VARCHAR(320) NOT NULL,
			email VARCHAR(320) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_prize_draw_user (user_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			zone TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_user_zone_ts ON visits (user_id, zone, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_ts ON visits (timestamp)`,
		`CREATE TABLE IF NOT EXISTS prize_draw (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			email TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prize_draw_user ON prize_draw (user_id)`,
	},
}

// Migrate creates the tables if they do not exist yet.  It is safe to run
// on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts, ok := schema[driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
