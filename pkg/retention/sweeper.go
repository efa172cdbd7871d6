// Package retention removes expired log lines and commands.
//
// There is no background timer. Callers invoke MaybeSweep on the request path
// and a persisted marker debounces it to at most one sweep per trigger
// interval. The trigger interval only controls cost; how long data lives is
// the separate retention window.
package retention

import (
	"context"
	"time"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/kv"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
	"go.uber.org/zap"
)

// MarkerKey holds the time of the last completed sweep.
const MarkerKey = "last_cleanup_time"

// Purger deletes at most BatchSize rows older than threshold per call.
type Purger interface {
	PurgeOlderThan(ctx context.Context, threshold time.Time) (int64, error)
	BatchSize() int
}

// Options configures a Sweeper.
type Options struct {
	// TriggerInterval is the minimum time between sweeps.
	TriggerInterval time.Duration
	// Retention is how old a row must be before it is purged.
	Retention time.Duration
	// MaxRounds caps the purge calls per store per sweep.
	MaxRounds int
}

// Result describes one MaybeSweep call.
type Result struct {
	Swept          bool
	LogsPurged     int64
	CommandsPurged int64
	// Backlog is set when a store still returned a full batch on its last
	// allowed round. The marker is left in place so the next call sweeps again.
	Backlog bool
}

// Sweeper purges both stores behind the marker.
type Sweeper struct {
	logs     Purger
	commands Purger
	marker   kv.Store
	opts     Options
	logger   *logging.ColoredLogger
}

// New returns a Sweeper.
func New(logs, commands Purger, marker kv.Store, opts Options, logger *logging.ColoredLogger) *Sweeper {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.TriggerInterval <= 0 {
		opts.TriggerInterval = 5 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 30 * time.Minute
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 1
	}
	return &Sweeper{logs: logs, commands: commands, marker: marker, opts: opts, logger: logger}
}

// LastSweep returns the marker; ok is false before the first sweep.
func (s *Sweeper) LastSweep(ctx context.Context) (time.Time, bool, error) {
	v, ok, err := s.marker.Get(ctx, MarkerKey)
	if err != nil {
		return time.Time{}, false, apperrors.NewStoreError("read sweep marker", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := timeutil.Parse(v)
	if err != nil {
		// An unreadable marker is treated as absent so the next call sweeps.
		s.logger.ComponentWarn(logging.ComponentSweeper, "Ignoring unreadable sweep marker",
			zap.String("value", v), zap.Error(err))
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// Due reports whether a sweep should run at now.
func (s *Sweeper) Due(ctx context.Context, now time.Time) (bool, error) {
	last, ok, err := s.LastSweep(ctx)
	if err != nil {
		return false, err
	}
	return !ok || now.Sub(last) >= s.opts.TriggerInterval, nil
}

// MaybeSweep purges rows older than now minus the retention window if the
// last sweep is at least the trigger interval old. The marker moves only
// after both stores were purged and neither hit the round cap.
func (s *Sweeper) MaybeSweep(ctx context.Context, now time.Time) (Result, error) {
	due, err := s.Due(ctx, now)
	if err != nil || !due {
		return Result{}, err
	}

	threshold := now.Add(-s.opts.Retention)
	logs, logsFull, err := s.purge(ctx, s.logs, threshold)
	if err != nil {
		return Result{}, err
	}
	commands, commandsFull, err := s.purge(ctx, s.commands, threshold)
	if err != nil {
		return Result{LogsPurged: logs}, err
	}

	if logsFull || commandsFull {
		s.logger.ComponentInfo(logging.ComponentSweeper, "Sweep hit round cap, continuing on next request",
			zap.Time("threshold", threshold),
			zap.Int64("logs_purged", logs),
			zap.Int64("commands_purged", commands),
		)
		return Result{Swept: true, LogsPurged: logs, CommandsPurged: commands, Backlog: true}, nil
	}

	if err := s.marker.Put(ctx, MarkerKey, timeutil.Format(now)); err != nil {
		return Result{LogsPurged: logs, CommandsPurged: commands}, apperrors.NewStoreError("write sweep marker", err)
	}

	s.logger.ComponentInfo(logging.ComponentSweeper, "Sweep completed",
		zap.Time("threshold", threshold),
		zap.Int64("logs_purged", logs),
		zap.Int64("commands_purged", commands),
	)
	return Result{Swept: true, LogsPurged: logs, CommandsPurged: commands}, nil
}

// purge runs up to MaxRounds batches. full reports that the last round still
// removed a whole batch.
func (s *Sweeper) purge(ctx context.Context, p Purger, threshold time.Time) (total int64, full bool, err error) {
	for round := 0; round < s.opts.MaxRounds; round++ {
		n, err := p.PurgeOlderThan(ctx, threshold)
		if err != nil {
			return total, false, err
		}
		total += n
		if n < int64(p.BatchSize()) {
			return total, false, nil
		}
	}
	return total, true, nil
}
