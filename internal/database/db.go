package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// MySQLDSN builds a go-sql-driver DSN.
func MySQLDSN(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)
}

// Open connects to the database and verifies the connection.  The handle
// is meant to be opened once at process start and closed at shutdown.
func Open(driver, dsn string) (*sql.DB, error) {
	if driver != DriverMySQL && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	if driver == DriverSQLite {
		// one connection: an in-memory database exists per connection and
		// SQLite serializes writers anyway
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
