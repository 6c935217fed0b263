package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLite driver names. "sqlite3" is the cgo driver, "sqlite" the pure-Go one.
const (
	DriverSQLite3 = "sqlite3"
	DriverSQLite  = "sqlite"
)

// SQLiteDialect targets SQLite 3.35 or later (RETURNING support).
// Timestamps are written as RFC 3339 text in UTC.
var SQLiteDialect = Dialect{
	Name:        "sqlite",
	Placeholder: PlaceholderQuestion,
	NumericID:   "INTEGER PRIMARY KEY AUTOINCREMENT",
	StringID:    "TEXT PRIMARY KEY",
	Text:        "TEXT",
	Number:      "REAL",
	Timestamp:   "TIMESTAMP",
	TimeArg: func(t time.Time) any {
		return t.UTC().Format(time.RFC3339Nano)
	},
}

// OpenSQLite opens a SQLite database at path with the given driver
// (DriverSQLite3 or DriverSQLite).
func OpenSQLite(ctx context.Context, driver, path string) (*SQLStore, error) {
	if driver == "" {
		driver = DriverSQLite3
	}

	dsn := path
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if driver == DriverSQLite3 && !memory {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if driver == DriverSQLite && !memory {
		pragmas = append(pragmas, "PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return NewSQLStore(db, SQLiteDialect), nil
}
