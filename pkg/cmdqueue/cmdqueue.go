// Package cmdqueue is the per-node mailbox of pending instructions.
//
// A drain claims the node's rows with a fresh token, reads them, then deletes
// exactly the claimed set. Only the drain whose delete removes every claimed
// row returns payloads, so each instruction is handed out at most once even
// when drains for the same node race or a claim is taken over after timing out.
package cmdqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/rqlite"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultClaimTimeout is how long a claim blocks other drains of the same node.
const DefaultClaimTimeout = time.Minute

// Payload is one instruction as delivered to a node.
type Payload struct {
	Command    string          `json:"command"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Options tunes a Queue. Zero values take defaults.
type Options struct {
	ClaimTimeout time.Duration
	PurgeBatch   int
	Clock        clock.Clock
}

// Queue stores pending commands in the hub database.
type Queue struct {
	db           rqlite.Client
	logger       *logging.ColoredLogger
	clock        clock.Clock
	claimTimeout time.Duration
	purgeBatch   int
}

type pendingRow struct {
	ID      int64  `db:"id"`
	Payload string `db:"payload"`
}

// New returns a Queue over db.
func New(db rqlite.Client, logger *logging.ColoredLogger, opts Options) *Queue {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.ClaimTimeout <= 0 {
		opts.ClaimTimeout = DefaultClaimTimeout
	}
	if opts.PurgeBatch <= 0 {
		opts.PurgeBatch = 10000
	}
	return &Queue{
		db:           db,
		logger:       logger,
		clock:        opts.Clock,
		claimTimeout: opts.ClaimTimeout,
		purgeBatch:   opts.PurgeBatch,
	}
}

// Enqueue appends p to the mailbox of nodeID and returns the new row id.
func (q *Queue) Enqueue(ctx context.Context, nodeID uint32, p Payload) (int64, error) {
	ids, err := q.insert(ctx, []uint32{nodeID}, p)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// EnqueueBroadcast appends p once per node in a single statement. The ids are
// in the order of nodeIDs. An empty node list stores nothing.
func (q *Queue) EnqueueBroadcast(ctx context.Context, p Payload, nodeIDs []uint32) ([]int64, error) {
	if len(nodeIDs) == 0 {
		return []int64{}, nil
	}
	return q.insert(ctx, nodeIDs, p)
}

func (q *Queue) insert(ctx context.Context, nodeIDs []uint32, p Payload) ([]int64, error) {
	if p.Command == "" {
		return nil, apperrors.NewValidationError("command", "command name is required", nil)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, apperrors.NewValidationError("parameters", "parameters are not valid JSON", nil)
	}

	now := timeutil.Format(q.clock.Now())
	var b strings.Builder
	b.WriteString("INSERT INTO commands (enqueued_at, node_id, payload) VALUES ")
	args := make([]any, 0, len(nodeIDs)*3)
	for i, n := range nodeIDs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, now, int64(n), string(raw))
	}

	res, err := q.db.Exec(ctx, b.String(), args...)
	if err != nil {
		return nil, rqlite.StoreError("enqueue command", err)
	}
	last, err := res.LastInsertId()
	if err != nil {
		return nil, rqlite.StoreError("enqueue command", err)
	}
	ids := make([]int64, len(nodeIDs))
	first := last - int64(len(nodeIDs)) + 1
	for i := range ids {
		ids[i] = first + int64(i)
	}

	q.logger.ComponentInfo(logging.ComponentQueue, "Command enqueued",
		zap.String("command", p.Command),
		zap.Int("nodes", len(nodeIDs)),
		zap.Int64("first_id", first),
	)
	return ids, nil
}

// DrainFor removes and returns every pending command for nodeID in id order.
// While another drain of the same node holds a live claim, nothing is claimed
// and the result is empty, so a command never overtakes one enqueued before
// it. Order across drains can only break once a claim outlives ClaimTimeout
// and is taken over.
func (q *Queue) DrainFor(ctx context.Context, nodeID uint32) ([]Payload, error) {
	token := uuid.NewString()
	now := q.clock.Now()
	stale := timeutil.Format(now.Add(-q.claimTimeout))

	res, err := q.db.Exec(ctx, `
UPDATE commands SET claim = ?, claimed_at = ?
WHERE node_id = ? AND (claim IS NULL OR claimed_at < ?)
AND NOT EXISTS (
	SELECT 1 FROM commands
	WHERE node_id = ? AND claim IS NOT NULL AND claim != ? AND claimed_at >= ?
)`,
		token, timeutil.Format(now), int64(nodeID), stale,
		int64(nodeID), token, stale)
	if err != nil {
		return nil, rqlite.StoreError("drain commands", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return nil, rqlite.StoreError("drain commands", err)
	}
	if claimed == 0 {
		return []Payload{}, nil
	}

	rows := make([]pendingRow, 0, claimed)
	if err := q.db.Query(ctx, &rows, `SELECT id, payload FROM commands WHERE claim = ? ORDER BY id`, token); err != nil {
		q.release(ctx, token)
		return nil, rqlite.StoreError("drain commands", err)
	}
	if len(rows) == 0 {
		return []Payload{}, nil
	}

	// The count guard makes the delete all-or-none: if any claimed row was
	// taken over, nothing is removed and this drain returns nothing.
	res, err = q.db.Exec(ctx, `
DELETE FROM commands
WHERE claim = ? AND (SELECT COUNT(*) FROM commands WHERE claim = ?) = ?`,
		token, token, len(rows))
	if err != nil {
		q.release(ctx, token)
		return nil, rqlite.StoreError("drain commands", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		// The guarded delete removed every claimed row or none of them.
		var left int64
		if cerr := q.db.QueryOne(ctx, &left, `SELECT COUNT(*) FROM commands WHERE claim = ?`, token); cerr != nil {
			return nil, rqlite.StoreError("drain commands", errors.Join(err, cerr))
		}
		deleted = int64(len(rows)) - left
		q.logger.ComponentWarn(logging.ComponentQueue, "Delete count unavailable, recounted claim",
			zap.Uint32("node_id", nodeID),
			zap.Int64("deleted", deleted),
			zap.Error(err),
		)
	}
	if deleted != int64(len(rows)) {
		q.release(ctx, token)
		q.logger.ComponentWarn(logging.ComponentQueue, "Drain lost its claim",
			zap.Uint32("node_id", nodeID),
			zap.Int("claimed", len(rows)),
			zap.Int64("deleted", deleted),
		)
		return []Payload{}, nil
	}

	out := make([]Payload, 0, len(rows))
	for _, r := range rows {
		var p Payload
		if err := json.Unmarshal([]byte(r.Payload), &p); err != nil || p.Command == "" {
			q.logger.ComponentWarn(logging.ComponentQueue, "Skipping undecodable command",
				zap.Int64("id", r.ID),
				zap.Uint32("node_id", nodeID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, p)
	}

	q.logger.ComponentDebug(logging.ComponentQueue, "Drained commands",
		zap.Uint32("node_id", nodeID),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// release returns claimed rows to the mailbox. Failure leaves them to the
// claim timeout.
func (q *Queue) release(ctx context.Context, token string) {
	if _, err := q.db.Exec(ctx, `UPDATE commands SET claim = NULL, claimed_at = NULL WHERE claim = ?`, token); err != nil {
		q.logger.ComponentWarn(logging.ComponentQueue, "Failed to release claim",
			zap.String("claim", token),
			zap.Error(err),
		)
	}
}

// PurgeOlderThan deletes at most one batch of commands enqueued before
// threshold and returns how many were removed.
func (q *Queue) PurgeOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := q.db.Exec(ctx, `
DELETE FROM commands WHERE id IN (
	SELECT id FROM commands WHERE enqueued_at < ? ORDER BY id LIMIT ?
)`, timeutil.Format(threshold), q.purgeBatch)
	if err != nil {
		return 0, rqlite.StoreError("purge commands", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, rqlite.StoreError("purge commands", err)
	}
	return n, nil
}

// BatchSize is the per-call purge cap.
func (q *Queue) BatchSize() int {
	return q.purgeBatch
}

// Pending reports how many commands wait for nodeID, claimed or not.
func (q *Queue) Pending(ctx context.Context, nodeID uint32) (int, error) {
	var n int
	if err := q.db.QueryOne(ctx, &n, `SELECT COUNT(*) FROM commands WHERE node_id = ?`, int64(nodeID)); err != nil {
		return 0, rqlite.StoreError("count commands", err)
	}
	return n, nil
}

// String is used in log fields.
func (p Payload) String() string {
	if len(p.Parameters) == 0 {
		return p.Command
	}
	return fmt.Sprintf("%s %s", p.Command, p.Parameters)
}
