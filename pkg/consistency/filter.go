// Package consistency decides which stored log lines readers may see.
//
// Nodes upload in batches on their own cadence, so a line with a low id may
// still be missing older neighbours that a slower node has not sent yet. The
// filter hides every line timestamped after the safety cutoff. This is a
// heuristic: it holds only while margin_base stays at least as large as the
// real upload interval of every node. It is not a guarantee.
package consistency

import (
	"context"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/logstore"
)

// DefaultMaxItems caps one download.
const DefaultMaxItems = 10000

// Cutoffs supplies the safety cutoff.
type Cutoffs interface {
	SafetyCutoff(ctx context.Context, now time.Time) (time.Time, error)
}

// Ranger reads the log store.
type Ranger interface {
	RangeAfter(ctx context.Context, minID int64, cutoff time.Time, limit int) ([]logstore.Record, error)
}

// Filter combines the schedule cutoff with log store reads.
type Filter struct {
	cutoffs  Cutoffs
	logs     Ranger
	maxItems int
}

// New returns a Filter returning at most maxItems records per call.
func New(cutoffs Cutoffs, logs Ranger, maxItems int) *Filter {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Filter{cutoffs: cutoffs, logs: logs, maxItems: maxItems}
}

// Cutoff is the exclusive upper timestamp bound for records visible at now.
func (f *Filter) Cutoff(ctx context.Context, now time.Time) (time.Time, error) {
	return f.cutoffs.SafetyCutoff(ctx, now)
}

// Visible returns records after lastID that are older than the cutoff.
func (f *Filter) Visible(ctx context.Context, lastID int64, now time.Time) ([]logstore.Record, error) {
	cutoff, err := f.Cutoff(ctx, now)
	if err != nil {
		return nil, err
	}
	return f.logs.RangeAfter(ctx, lastID, cutoff, f.maxItems)
}

// MaxItems is the per-call record cap.
func (f *Filter) MaxItems() int {
	return f.maxItems
}
