package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/drugbox/internal/db"
	sqlitestore "github.com/BrandonDHaskell/drugbox/internal/drugbox/store/sqlite"
)

// openTestDB returns an in-memory SQLite connection with the production
// schema, private to the calling test.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenMemory(context.Background(), "test_"+t.Name())
	require.NoError(t, err, "openTestDB")
	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestStore wires a Store with its own writer. Both are closed when the
// test finishes.
func newTestStore(t *testing.T) (*sqlitestore.Store, *sql.DB) {
	t.Helper()

	conn := openTestDB(t)
	w := db.NewWorker(conn)
	s := sqlitestore.New(conn, w)
	t.Cleanup(func() { _ = s.Close() })
	return s, conn
}
