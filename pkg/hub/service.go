// Package hub implements the three hub operations on top of the stores:
// nodes ingest log lines and pick up commands, collectors download settled
// lines, and operators submit commands.
//
// A Service holds no state between calls. Everything it knows is read
// from the database on each call, so any number of instances can share one.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/cmdqueue"
	"github.com/DeBrosOfficial/loghub/pkg/consistency"
	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/logstore"
	"github.com/DeBrosOfficial/loghub/pkg/retention"
	"github.com/DeBrosOfficial/loghub/pkg/schedule"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Deps are the components a Service composes.
type Deps struct {
	Logs     *logstore.Store
	Queue    *cmdqueue.Queue
	Schedule *schedule.Config
	Sweeper  *retention.Sweeper
	Filter   *consistency.Filter
	Registry *Registry
	Clock    clock.Clock
	Logger   *logging.ColoredLogger
}

// Options tunes a Service.
type Options struct {
	// MaxBatch caps the lines of one ingest call.
	MaxBatch int
	// SweepOnDownload also runs the maybe-sweep step on downloads.
	SweepOnDownload bool
}

// Service is the hub.
type Service struct {
	logs     *logstore.Store
	queue    *cmdqueue.Queue
	schedule *schedule.Config
	sweeper  *retention.Sweeper
	filter   *consistency.Filter
	registry *Registry
	clock    clock.Clock
	logger   *logging.ColoredLogger
	opts     Options
}

// New returns a Service. Logs, Queue, Schedule, Sweeper and Filter are required.
func New(d Deps, opts Options) (*Service, error) {
	if d.Logs == nil || d.Queue == nil || d.Schedule == nil || d.Sweeper == nil || d.Filter == nil {
		return nil, fmt.Errorf("hub: missing dependency")
	}
	if d.Registry == nil {
		r, err := NewRegistry()
		if err != nil {
			return nil, err
		}
		d.Registry = r
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	if opts.MaxBatch <= 0 || opts.MaxBatch > logstore.MaxBatch {
		opts.MaxBatch = logstore.MaxBatch
	}
	return &Service{
		logs:     d.Logs,
		queue:    d.Queue,
		schedule: d.Schedule,
		sweeper:  d.Sweeper,
		filter:   d.Filter,
		registry: d.Registry,
		clock:    d.Clock,
		logger:   d.Logger,
		opts:     opts,
	}, nil
}

// LogLine is one line of an ingest request.
type LogLine struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// IngestResult is returned to the uploading node.
type IngestResult struct {
	Commands       []cmdqueue.Payload `json:"commands"`
	UpdateInterval int64              `json:"update_interval"`
}

// Ingest stores the batch for nodeID, runs the maybe-sweep step, drains the
// node's mailbox and reports the upload interval now in effect. The batch is
// stored whole or not at all.
func (s *Service) Ingest(ctx context.Context, nodeID uint32, lines []LogLine) (*IngestResult, error) {
	if len(lines) > s.opts.MaxBatch {
		return nil, apperrors.NewValidationError("logs", fmt.Sprintf("batch of %d lines exceeds %d", len(lines), s.opts.MaxBatch), len(lines))
	}
	entries := make([]logstore.Entry, len(lines))
	for i, l := range lines {
		ts, err := timeutil.Parse(l.Timestamp)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("logs[%d].timestamp", i), err.Error(), l.Timestamp)
		}
		entries[i] = logstore.Entry{Timestamp: ts, Message: l.Message}
	}

	if _, err := s.logs.Append(ctx, nodeID, entries); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	s.maybeSweep(ctx, now)

	commands, err := s.queue.DrainFor(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	interval, err := s.schedule.EffectiveInterval(ctx, now)
	if err != nil {
		return nil, err
	}

	s.logger.ComponentDebug(logging.ComponentHub, "Ingested batch",
		zap.Uint32("node_id", nodeID),
		zap.Int("lines", len(lines)),
		zap.Int("commands", len(commands)),
		zap.Duration("update_interval", interval),
	)
	return &IngestResult{Commands: commands, UpdateInterval: int64(interval / time.Second)}, nil
}

// maybeSweep never fails the calling request. A failed sweep leaves the
// marker untouched so the next call retries it.
func (s *Service) maybeSweep(ctx context.Context, now time.Time) {
	if _, err := s.sweeper.MaybeSweep(ctx, now); err != nil {
		s.logger.ComponentWarn(logging.ComponentSweeper, "Sweep failed", zap.Error(err))
	}
}

// Download returns settled lines with id greater than lastID, ascending.
func (s *Service) Download(ctx context.Context, lastID int64) ([]logstore.Record, error) {
	if lastID < 0 {
		return nil, apperrors.NewValidationError("last_log_message_id", "must be non-negative", lastID)
	}
	now := s.clock.Now()
	records, err := s.filter.Visible(ctx, lastID, now)
	if err != nil {
		return nil, err
	}
	if s.opts.SweepOnDownload {
		s.maybeSweep(ctx, now)
	}
	return records, nil
}

// CommandRequest is an operator submission.
type CommandRequest struct {
	Command    string          `json:"command"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// SubmitResult describes where a command went.
type SubmitResult struct {
	// Scheduled is set when the command updated the schedule instead of the queue.
	Scheduled bool
	// Nodes are the mailboxes the command was queued to.
	Nodes []uint32
	IDs   []int64
}

// SubmitCommand validates req and queues it for the target node, or for every
// known node when none is given. set_update_interval updates the schedule.
func (s *Service) SubmitCommand(ctx context.Context, req CommandRequest) (*SubmitResult, error) {
	params, err := decodeParams(req.Parameters)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Check(req.Command, params); err != nil {
		return nil, err
	}
	nodeID, targeted, err := params.NodeID()
	if err != nil {
		return nil, err
	}

	if req.Command == CommandSetUpdateInterval {
		return s.setSchedule(ctx, params, targeted)
	}

	payload := cmdqueue.Payload{Command: req.Command}
	if len(params) > 0 {
		payload.Parameters = req.Parameters
	}

	if targeted {
		id, err := s.queue.Enqueue(ctx, nodeID, payload)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Nodes: []uint32{nodeID}, IDs: []int64{id}}, nil
	}

	nodes, err := s.logs.KnownNodes(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.queue.EnqueueBroadcast(ctx, payload, nodes)
	if err != nil {
		return nil, err
	}
	s.logger.ComponentInfo(logging.ComponentHub, "Broadcast command",
		zap.String("command", req.Command),
		zap.Int("nodes", len(nodes)),
	)
	return &SubmitResult{Nodes: nodes, IDs: ids}, nil
}

func (s *Service) setSchedule(ctx context.Context, params Params, targeted bool) (*SubmitResult, error) {
	w, err := parseWindow(params)
	if err != nil {
		return nil, err
	}
	if targeted {
		err = s.schedule.SetForNode(ctx, w)
	} else {
		err = s.schedule.SetGlobal(ctx, w)
	}
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Scheduled: true}, nil
}

// ScheduleStatus is the schedule part of Status.
type ScheduleStatus struct {
	Set            bool       `json:"set"`
	WindowStart    *time.Time `json:"window_start,omitempty"`
	WindowEnd      *time.Time `json:"window_end,omitempty"`
	ActivePeriod   int64      `json:"active_period,omitempty"`
	InactivePeriod int64      `json:"inactive_period,omitempty"`
	MarginBase     int64      `json:"margin_base"`
	UpdateInterval int64      `json:"update_interval"`
	Cutoff         time.Time  `json:"cutoff"`
}

// Status reports the operator view of the hub.
type Status struct {
	Time       time.Time      `json:"time"`
	Schedule   ScheduleStatus `json:"schedule"`
	KnownNodes int            `json:"known_nodes"`
	LastSweep  *time.Time     `json:"last_sweep,omitempty"`
	Commands   []string       `json:"commands"`
}

// Status reads the schedule, known node count and last sweep time.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	now := s.clock.Now().UTC()
	st := &Status{Time: now, Commands: s.registry.Names()}

	state, ok, err := s.schedule.Get(ctx)
	if err != nil {
		return nil, err
	}
	margin := s.schedule.DefaultInterval()
	interval := margin
	if ok {
		start, end := state.Start, state.End
		st.Schedule = ScheduleStatus{
			Set:            true,
			WindowStart:    &start,
			WindowEnd:      &end,
			ActivePeriod:   int64(state.ActivePeriod / time.Second),
			InactivePeriod: int64(state.InactivePeriod / time.Second),
		}
		margin = state.MarginBase
		interval = state.Interval(now)
	}
	st.Schedule.MarginBase = int64(margin / time.Second)
	st.Schedule.UpdateInterval = int64(interval / time.Second)
	if st.Schedule.Cutoff, err = s.filter.Cutoff(ctx, now); err != nil {
		return nil, err
	}

	nodes, err := s.logs.KnownNodes(ctx)
	if err != nil {
		return nil, err
	}
	st.KnownNodes = len(nodes)

	last, swept, err := s.sweeper.LastSweep(ctx)
	if err != nil {
		return nil, err
	}
	if swept {
		st.LastSweep = &last
	}
	return st, nil
}
