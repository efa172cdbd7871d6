// Package schedule keeps the single upload-schedule record and derives the
// interval nodes are told to use and the download safety cutoff from it.
//
// The record is read from the database on every call and written with one
// UPSERT statement per update, so several hub instances can share it.
package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/rqlite"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	// DefaultInterval applies while no schedule has been set.
	DefaultInterval = 300 * time.Second
	// DefaultSlack multiplies margin_base when computing the cutoff.
	DefaultSlack = 1.1
	// MaxPeriod bounds active and inactive periods.
	MaxPeriod = 7 * 24 * time.Hour
)

// Window is the schedule carried by a set_update_interval command.
type Window struct {
	Start          time.Time
	End            time.Time
	ActivePeriod   time.Duration
	InactivePeriod time.Duration
}

// Validate checks ordering and period bounds.
func (w Window) Validate() error {
	if w.Start.IsZero() {
		return apperrors.NewValidationError("window_start", "window_start is required", nil)
	}
	if w.End.IsZero() {
		return apperrors.NewValidationError("window_end", "window_end is required", nil)
	}
	if w.Start.After(w.End) {
		return apperrors.NewValidationError("window_start", "window_start must not be after window_end", timeutil.Format(w.Start))
	}
	if err := validatePeriod("active_period", w.ActivePeriod); err != nil {
		return err
	}
	return validatePeriod("inactive_period", w.InactivePeriod)
}

func validatePeriod(field string, d time.Duration) error {
	switch {
	case d <= 0:
		return apperrors.NewValidationError(field, "must be a positive number of seconds", d.Seconds())
	case d > MaxPeriod:
		return apperrors.NewValidationError(field, fmt.Sprintf("must not exceed %d seconds", int64(MaxPeriod/time.Second)), d.Seconds())
	case d%time.Second != 0:
		return apperrors.NewValidationError(field, "must be a whole number of seconds", d.Seconds())
	}
	return nil
}

// Contains reports whether now falls inside the window, bounds included.
func (w Window) Contains(now time.Time) bool {
	return !now.Before(w.Start) && !now.After(w.End)
}

// Interval returns the period that applies at now.
func (w Window) Interval(now time.Time) time.Duration {
	if w.Contains(now) {
		return w.ActivePeriod
	}
	return w.InactivePeriod
}

func (w Window) widest() time.Duration {
	if w.ActivePeriod > w.InactivePeriod {
		return w.ActivePeriod
	}
	return w.InactivePeriod
}

// State is the stored record.
type State struct {
	Window
	MarginBase time.Duration
	UpdatedAt  time.Time
}

type row struct {
	WindowStart    string `db:"window_start"`
	WindowEnd      string `db:"window_end"`
	ActivePeriod   int64  `db:"active_period"`
	InactivePeriod int64  `db:"inactive_period"`
	MarginBase     int64  `db:"margin_base"`
	UpdatedAt      string `db:"updated_at"`
}

// Options tunes a Config. Zero values take defaults.
type Options struct {
	DefaultInterval time.Duration
	Slack           float64
	Clock           clock.Clock
}

// Config reads and updates the schedule record.
type Config struct {
	db              rqlite.Client
	logger          *logging.ColoredLogger
	clock           clock.Clock
	defaultInterval time.Duration
	slack           float64
}

// New returns a Config over db.
func New(db rqlite.Client, logger *logging.ColoredLogger, opts Options) *Config {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = DefaultInterval
	}
	if opts.Slack < 1 {
		opts.Slack = DefaultSlack
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Config{
		db:              db,
		logger:          logger,
		clock:           opts.Clock,
		defaultInterval: opts.DefaultInterval,
		slack:           opts.Slack,
	}
}

// DefaultInterval is the interval used while the record is unset.
func (c *Config) DefaultInterval() time.Duration {
	return c.defaultInterval
}

const upsertColumns = `INSERT INTO schedule_config
	(id, window_start, window_end, active_period, inactive_period, margin_base, updated_at)
VALUES (1, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	window_start = excluded.window_start,
	window_end = excluded.window_end,
	active_period = excluded.active_period,
	inactive_period = excluded.inactive_period,
	updated_at = excluded.updated_at,
`

// SetGlobal replaces the window and sets margin_base to the wider period,
// which may shrink it.
func (c *Config) SetGlobal(ctx context.Context, w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	margin := seconds(w.widest())
	_, err := c.db.Exec(ctx, upsertColumns+`	margin_base = excluded.margin_base`,
		c.windowArgs(w, margin)...)
	if err != nil {
		return rqlite.StoreError("set schedule", err)
	}
	c.logger.ComponentInfo(logging.ComponentSchedule, "Global schedule set",
		zap.Int64("active_period", seconds(w.ActivePeriod)),
		zap.Int64("inactive_period", seconds(w.InactivePeriod)),
		zap.Int64("margin_base", margin),
	)
	return nil
}

// SetForNode replaces the window but only ever raises margin_base. When the
// record is unset the existing margin is taken to be the default interval.
func (c *Config) SetForNode(ctx context.Context, w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	// The conflict branch binds the new value on its own so that the default
	// never inflates an already stored margin.
	widest := seconds(w.widest())
	initial := widest
	if d := seconds(c.defaultInterval); d > initial {
		initial = d
	}
	args := append(c.windowArgs(w, initial), widest)
	_, err := c.db.Exec(ctx, upsertColumns+`	margin_base = MAX(schedule_config.margin_base, ?)`, args...)
	if err != nil {
		return rqlite.StoreError("set schedule", err)
	}
	c.logger.ComponentInfo(logging.ComponentSchedule, "Node schedule merged",
		zap.Int64("active_period", seconds(w.ActivePeriod)),
		zap.Int64("inactive_period", seconds(w.InactivePeriod)),
	)
	return nil
}

func (c *Config) windowArgs(w Window, margin int64) []any {
	return []any{
		timeutil.Format(w.Start),
		timeutil.Format(w.End),
		seconds(w.ActivePeriod),
		seconds(w.InactivePeriod),
		margin,
		timeutil.Format(c.clock.Now()),
	}
}

// Get returns the stored record; ok is false while it is unset.
func (c *Config) Get(ctx context.Context) (State, bool, error) {
	var r row
	err := c.db.CreateQueryBuilder("schedule_config").
		Select("window_start", "window_end", "active_period", "inactive_period", "margin_base", "updated_at").
		Where("id = ?", 1).
		GetOne(ctx, &r)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, rqlite.StoreError("read schedule", err)
	}

	start, err1 := timeutil.Parse(r.WindowStart)
	end, err2 := timeutil.Parse(r.WindowEnd)
	updated, err3 := timeutil.Parse(r.UpdatedAt)
	if err := errors.Join(err1, err2, err3); err != nil {
		return State{}, false, rqlite.StoreError("read schedule", err)
	}
	return State{
		Window: Window{
			Start:          start,
			End:            end,
			ActivePeriod:   time.Duration(r.ActivePeriod) * time.Second,
			InactivePeriod: time.Duration(r.InactivePeriod) * time.Second,
		},
		MarginBase: time.Duration(r.MarginBase) * time.Second,
		UpdatedAt:  updated,
	}, true, nil
}

// EffectiveInterval is the upload cadence a node should use at now.
func (c *Config) EffectiveInterval(ctx context.Context, now time.Time) (time.Duration, error) {
	st, ok, err := c.Get(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return c.defaultInterval, nil
	}
	return st.Interval(now), nil
}

// Margin returns margin_base, or the default interval while unset.
func (c *Config) Margin(ctx context.Context) (time.Duration, error) {
	st, ok, err := c.Get(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return c.defaultInterval, nil
	}
	return st.MarginBase, nil
}

// SafetyCutoff is now minus the margin scaled by the slack factor.
func (c *Config) SafetyCutoff(ctx context.Context, now time.Time) (time.Time, error) {
	margin, err := c.Margin(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-c.scaled(margin)), nil
}

func (c *Config) scaled(margin time.Duration) time.Duration {
	return time.Duration(math.Round(float64(margin) * c.slack))
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
