package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// DriverPostgres selects the pgx-backed PostgreSQL store.
const DriverPostgres = "postgres"

// PostgresDialect targets PostgreSQL through pgx.
var PostgresDialect = Dialect{
	Name:        "postgres",
	Placeholder: PlaceholderDollar,
	NumericID:   "BIGSERIAL PRIMARY KEY",
	StringID:    "TEXT PRIMARY KEY",
	Text:        "TEXT",
	Number:      "DOUBLE PRECISION",
	Timestamp:   "TIMESTAMPTZ",
	TimeArg:     func(t time.Time) any { return t },
}

// OpenPostgres connects to PostgreSQL using a pgx connection string.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return NewSQLStore(db, PostgresDialect), nil
}

// Open opens a SQL store for driver: DriverSQLite3, DriverSQLite or
// DriverPostgres ("pgx" is accepted as an alias).
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite3, DriverSQLite, "":
		return OpenSQLite(ctx, driver, dsn)
	case DriverPostgres, "pgx":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
