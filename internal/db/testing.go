package db

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// SetupTestDB creates an in-memory SQLite database with all migrations applied.
// It returns a clean database connection that will be automatically closed
// when the test completes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	// Every pooled connection would get its own empty in-memory database.
	conn.SetMaxOpenConns(1)

	require.NoError(t, conn.PingContext(context.Background()))

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = MEMORY;", // Faster for testing
		"PRAGMA synchronous = OFF;",     // Faster for testing
	}
	for _, pragma := range pragmas {
		_, err = conn.ExecContext(context.Background(), pragma)
		require.NoError(t, err)
	}

	goose.SetBaseFS(FS)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(conn, "migrations"))

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}
