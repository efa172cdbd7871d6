// Package kv keeps small named string records, such as the sweeper's
// last-run marker, in either the SQL database or an Olric cluster.
package kv

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DeBrosOfficial/loghub/pkg/rqlite"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
	"github.com/benbjohnson/clock"
)

// Store is a string key/value store. Get reports a missing key with ok=false.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// SQLStore keeps records in the kv table of the hub database.
type SQLStore struct {
	db    rqlite.Client
	clock clock.Clock
}

// NewSQLStore returns a Store over the shared database. Close is a no-op;
// the database is owned by the caller.
func NewSQLStore(db rqlite.Client, clk clock.Clock) *SQLStore {
	if clk == nil {
		clk = clock.New()
	}
	return &SQLStore{db: db, clock: clk}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryOne(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, timeutil.Format(s.clock.Now()))
	return err
}

func (s *SQLStore) Close() error { return nil }
