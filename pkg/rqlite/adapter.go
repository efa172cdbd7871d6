package rqlite

// adapter.go opens the *sql.DB behind a Client for either backend:
// a local SQLite file (mattn/go-sqlite3) or an rqlite cluster (gorqlite stdlib).

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"      // registers "sqlite3"
	_ "github.com/rqlite/gorqlite/stdlib" // registers "rqlite"
)

// Supported backend names.
const (
	DriverSQLite = "sqlite"
	DriverRQLite = "rqlite"
)

// Options selects and tunes the SQL backend.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// Open connects to the configured backend and pings it.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, opts.DSN)
	case DriverRQLite:
		return OpenRQLite(ctx, opts.DSN, opts.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// OpenSQLite opens a SQLite database file, creating its directory if needed.
// Writers are serialized on a single connection; WAL keeps readers unblocked.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// One connection: statements queue in database/sql instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_txlock", "immediate")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// OpenRQLite connects to an rqlite node through the gorqlite database/sql driver.
func OpenRQLite(ctx context.Context, dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open("rqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open RQLite SQL connection: %w", err)
	}

	if maxOpen <= 0 {
		maxOpen = 100
	}
	// Connection pool tuned for fast eviction of bad HTTP connections
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Second)
	db.SetConnMaxIdleTime(10 * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach rqlite at %s: %w", dsn, err)
	}
	return db, nil
}
