package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/zone-explorer/internal/config"
)

func TestDataSource(t *testing.T) {
	dsn, err := dataSource(config.Config{DBDriver: "sqlite3", DBPath: "visits.db"})
	require.NoError(t, err)
	assert.Equal(t, "visits.db", dsn)

	dsn, err = dataSource(config.Config{DBDriver: "mysql", DBUser: "u", DBHost: "db", DBPort: "3306", DBName: "zones"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "u@tcp(db:3306)/zones")

	_, err = dataSource(config.Config{DBDriver: "postgres"})
	assert.Error(t, err)
}

func TestZonesCommand(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out

	require.NoError(t, app.Run([]string{"zone-explorer", "zones", "--file", "", "--base-url", "https://expo.example"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[1], "zone123abc")
	assert.Contains(t, lines[1], "Zone 1")
	assert.Contains(t, lines[1], "https://expo.example/v1/checkin?zone=zone123abc")
}
