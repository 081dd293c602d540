package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Dialect selects which embedded migration set to apply.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Migrate applies every pending migration for the dialect. Each call builds
// its own goose.Provider, so parallel tests against separate databases do not
// share goose's package-level state.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var gd goose.Dialect
	switch dialect {
	case DialectSQLite:
		gd = goose.DialectSQLite3
	case DialectPostgres:
		gd = goose.DialectPostgres
	default:
		return fmt.Errorf("migrate: unknown dialect %q", dialect)
	}

	sub, err := fs.Sub(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("migrate: open %s migrations: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gd, db, sub)
	if err != nil {
		return fmt.Errorf("migrate: new provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}
