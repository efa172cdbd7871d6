package rqlite

// client.go defines the ORM-like Client over database/sql. The same Client
// runs on the SQLite driver and on the rqlite stdlib driver, so callers keep
// to single-statement writes and never rely on multi-statement transactions.

import (
	"context"
	"database/sql"
)

// Client is the high-level query API used by the stores.
type Client interface {
	// Query runs an arbitrary SELECT and scans rows into dest (pointer to a
	// slice of structs, of map[string]any, or of a scalar for one-column results).
	Query(ctx context.Context, dest any, query string, args ...any) error
	// QueryOne scans the first row into dest and returns sql.ErrNoRows when there is none.
	QueryOne(ctx context.Context, dest any, query string, args ...any) error
	// Exec runs a write statement (INSERT/UPDATE/DELETE).
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Fluent query builder for SELECTs.
	CreateQueryBuilder(table string) *QueryBuilder

	// DB exposes the underlying pool for migrations and health checks.
	DB() *sql.DB
	// Ping checks the connection.
	Ping(ctx context.Context) error
	Close() error
}

// executor is implemented by *sql.DB and *sql.Tx.
type executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewClient wraps an opened *sql.DB.
func NewClient(db *sql.DB) Client {
	return &client{db: db}
}

type client struct {
	db *sql.DB
}

func (c *client) Query(ctx context.Context, dest any, query string, args ...any) error {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	return scanIntoDest(rows, dest)
}

func (c *client) QueryOne(ctx context.Context, dest any, query string, args ...any) error {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return scanIntoSingle(rows, dest)
}

func (c *client) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *client) CreateQueryBuilder(table string) *QueryBuilder {
	return newQueryBuilder(c.db, table)
}

func (c *client) DB() *sql.DB {
	return c.db
}

func (c *client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *client) Close() error {
	return c.db.Close()
}
