// Package logstore persists the log lines reported by nodes.
//
// Records are append-only. Each gets an id from the database at insert
// time and downloads page through records in id order.
package logstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/rqlite"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
	"go.uber.org/zap"
)

// MaxBatch is the largest batch Append accepts in one statement.
// Three bound parameters per row keep it under SQLite's 32766 limit.
const MaxBatch = 10000

// Record is one stored log line.
type Record struct {
	ID        int64  `db:"id" json:"item_id"`
	Timestamp string `db:"timestamp" json:"timestamp"`
	NodeID    uint32 `db:"node_id" json:"node_id"`
	Message   string `db:"message" json:"message"`
}

// Entry is one line of an ingest batch.
type Entry struct {
	Timestamp time.Time
	Message   string
}

// Store is the log store over the hub database.
type Store struct {
	db         rqlite.Client
	logger     *logging.ColoredLogger
	purgeBatch int
}

// New returns a Store that deletes at most purgeBatch rows per purge call.
func New(db rqlite.Client, logger *logging.ColoredLogger, purgeBatch int) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if purgeBatch <= 0 {
		purgeBatch = 10000
	}
	return &Store{db: db, logger: logger, purgeBatch: purgeBatch}
}

// Append inserts the batch for nodeID in a single statement, so either every
// line is stored or none is. The returned ids are in batch order.
func (s *Store) Append(ctx context.Context, nodeID uint32, entries []Entry) ([]int64, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if len(entries) > MaxBatch {
		return nil, apperrors.NewValidationError("logs", fmt.Sprintf("batch of %d lines exceeds %d", len(entries), MaxBatch), len(entries))
	}

	var b strings.Builder
	b.WriteString("INSERT INTO log_messages (timestamp, node_id, message) VALUES ")
	args := make([]any, 0, len(entries)*3)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, timeutil.Format(e.Timestamp), int64(nodeID), e.Message)
	}

	res, err := s.db.Exec(ctx, b.String(), args...)
	if err != nil {
		return nil, rqlite.StoreError("append logs", err)
	}

	// A single INSERT takes consecutive AUTOINCREMENT ids ending at LastInsertId.
	last, err := res.LastInsertId()
	if err != nil {
		return nil, rqlite.StoreError("append logs", err)
	}
	ids := make([]int64, len(entries))
	first := last - int64(len(entries)) + 1
	for i := range ids {
		ids[i] = first + int64(i)
	}

	s.logger.ComponentDebug(logging.ComponentDatabase, "Appended log batch",
		zap.Uint32("node_id", nodeID),
		zap.Int("lines", len(entries)),
		zap.Int64("first_id", first),
	)
	return ids, nil
}

// AppendOne stores a single line.
func (s *Store) AppendOne(ctx context.Context, nodeID uint32, ts time.Time, message string) (int64, error) {
	ids, err := s.Append(ctx, nodeID, []Entry{{Timestamp: ts, Message: message}})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// RangeAfter returns up to limit records with id > minID and timestamp
// strictly before cutoff, ascending by id.
func (s *Store) RangeAfter(ctx context.Context, minID int64, cutoff time.Time, limit int) ([]Record, error) {
	records := make([]Record, 0)
	err := s.db.CreateQueryBuilder("log_messages").
		Select("id", "timestamp", "node_id", "message").
		Where("id > ?", minID).
		AndWhere("timestamp < ?", timeutil.Format(cutoff)).
		OrderBy("id ASC").
		Limit(limit).
		GetMany(ctx, &records)
	if err != nil {
		return nil, rqlite.StoreError("read logs", err)
	}
	return records, nil
}

// PurgeOlderThan deletes at most one batch of records with timestamp before
// threshold and returns how many were removed.
func (s *Store) PurgeOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := s.db.Exec(ctx, `
DELETE FROM log_messages WHERE id IN (
	SELECT id FROM log_messages WHERE timestamp < ? ORDER BY id LIMIT ?
)`, timeutil.Format(threshold), s.purgeBatch)
	if err != nil {
		return 0, rqlite.StoreError("purge logs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, rqlite.StoreError("purge logs", err)
	}
	return n, nil
}

// BatchSize is the per-call purge cap.
func (s *Store) BatchSize() int {
	return s.purgeBatch
}

// KnownNodes returns the distinct node ids with at least one stored record, ascending.
func (s *Store) KnownNodes(ctx context.Context) ([]uint32, error) {
	nodes := make([]uint32, 0)
	err := s.db.CreateQueryBuilder("log_messages").
		Select("node_id").
		GroupBy("node_id").
		OrderBy("node_id ASC").
		GetMany(ctx, &nodes)
	if err != nil {
		return nil, rqlite.StoreError("list nodes", err)
	}
	return nodes, nil
}
