package schedule

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/rqlite"
	"github.com/benbjohnson/clock"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newConfig(t *testing.T) *Config {
	t.Helper()
	ctx := context.Background()
	db, err := rqlite.OpenSQLite(ctx, filepath.Join(t.TempDir(), "schedule.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := rqlite.Migrate(ctx, db, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mock := clock.NewMock()
	mock.Set(now)
	return New(rqlite.NewClient(db), nil, Options{Clock: mock})
}

// window outside now: an hour-long window starting tomorrow.
func futureWindow(active, inactive time.Duration) Window {
	return Window{
		Start:          now.Add(24 * time.Hour),
		End:            now.Add(25 * time.Hour),
		ActivePeriod:   active,
		InactivePeriod: inactive,
	}
}

func TestUnsetUsesDefault(t *testing.T) {
	c := newConfig(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx); ok || err != nil {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	iv, err := c.EffectiveInterval(ctx, now)
	if err != nil || iv != DefaultInterval {
		t.Errorf("EffectiveInterval = %v, %v", iv, err)
	}
	cut, err := c.SafetyCutoff(ctx, now)
	if err != nil || !cut.Equal(now.Add(-330*time.Second)) {
		t.Errorf("SafetyCutoff = %v, %v", cut, err)
	}
}

func TestSetGlobalOutsideWindow(t *testing.T) {
	c := newConfig(t)
	ctx := context.Background()

	if err := c.SetGlobal(ctx, futureWindow(60*time.Second, 300*time.Second)); err != nil {
		t.Fatal(err)
	}
	iv, err := c.EffectiveInterval(ctx, now)
	if err != nil || iv != 300*time.Second {
		t.Errorf("EffectiveInterval = %v, %v", iv, err)
	}
	cut, err := c.SafetyCutoff(ctx, now)
	if err != nil || !cut.Equal(now.Add(-330*time.Second)) {
		t.Errorf("SafetyCutoff = %v, %v", cut, err)
	}
}

func TestEffectiveIntervalInsideWindowIncludesBounds(t *testing.T) {
	c := newConfig(t)
	ctx := context.Background()

	w := Window{Start: now, End: now.Add(time.Hour), ActivePeriod: 10 * time.Second, InactivePeriod: 20 * time.Second}
	if err := c.SetGlobal(ctx, w); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		at   time.Time
		want time.Duration
	}{
		{"start", now, 10 * time.Second},
		{"middle", now.Add(30 * time.Minute), 10 * time.Second},
		{"end", now.Add(time.Hour), 10 * time.Second},
		{"before", now.Add(-time.Nanosecond), 20 * time.Second},
		{"after", now.Add(time.Hour + time.Second), 20 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.EffectiveInterval(ctx, tt.at)
			if err != nil || got != tt.want {
				t.Errorf("EffectiveInterval = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

func TestSetGlobalMayShrinkMargin(t *testing.T) {
	c := newConfig(t)
	ctx := context.Background()

	if err := c.SetGlobal(ctx, futureWindow(600*time.Second, 900*time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := c.SetGlobal(ctx, futureWindow(10*time.Second, 20*time.Second)); err != nil {
		t.Fatal(err)
	}
	m, err := c.Margin(ctx)
	if err != nil || m != 20*time.Second {
		t.Errorf("Margin = %v, %v", m, err)
	}
}

func TestSetForNodeNeverLowersMargin(t *testing.T) {
	c := newConfig(t)
	ctx := context.Background()

	// First write on an unset record counts the default as existing.
	if err := c.SetForNode(ctx, futureWindow(10*time.Second, 20*time.Second)); err != nil {
		t.Fatal(err)
	}
	st, ok, err := c.Get(ctx)
	if !ok || err != nil {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if st.MarginBase != 300*time.Second {
		t.Errorf("margin = %v, want 300s", st.MarginBase)
	}
	if st.ActivePeriod != 10*time.Second || st.InactivePeriod != 20*time.Second {
		t.Errorf("window not replaced: %+v", st.Window)
	}
	if !st.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %v", st.UpdatedAt)
	}

	cut, _ := c.SafetyCutoff(ctx, now)
	if !cut.Equal(now.Add(-330 * time.Second)) {
		t.Errorf("SafetyCutoff = %v", cut)
	}

	if err := c.SetForNode(ctx, futureWindow(60*time.Second, 1200*time.Second)); err != nil {
		t.Fatal(err)
	}
	if m, _ := c.Margin(ctx); m != 1200*time.Second {
		t.Errorf("raised margin = %v", m)
	}

	if err := c.SetForNode(ctx, futureWindow(5*time.Second, 5*time.Second)); err != nil {
		t.Fatal(err)
	}
	if m, _ := c.Margin(ctx); m != 1200*time.Second {
		t.Errorf("margin lowered to %v", m)
	}
}

func TestSetForNodeAfterSmallGlobal(t *testing.T) {
	c := newConfig(t)
	ctx := context.Background()

	if err := c.SetGlobal(ctx, futureWindow(10*time.Second, 20*time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := c.SetForNode(ctx, futureWindow(30*time.Second, 40*time.Second)); err != nil {
		t.Fatal(err)
	}
	if m, _ := c.Margin(ctx); m != 40*time.Second {
		t.Errorf("margin = %v, want 40s", m)
	}
}

func TestCutoffMonotoneUnderNodeUpdates(t *testing.T) {
	c := newConfig(t)
	ctx := context.Background()

	prev, _ := c.SafetyCutoff(ctx, now)
	for _, p := range []time.Duration{50, 400, 100, 700, 1, 699} {
		if err := c.SetForNode(ctx, futureWindow(p*time.Second, p*time.Second)); err != nil {
			t.Fatal(err)
		}
		cut, err := c.SafetyCutoff(ctx, now)
		if err != nil {
			t.Fatal(err)
		}
		if cut.After(prev) {
			t.Fatalf("cutoff moved forward after period %v: %v > %v", p, cut, prev)
		}
		prev = cut
	}
}

func TestWindowValidate(t *testing.T) {
	good := futureWindow(time.Second, MaxPeriod)

	tests := []struct {
		name  string
		edit  func(w *Window)
		field string
	}{
		{"valid", func(w *Window) {}, ""},
		{"start equals end", func(w *Window) { w.End = w.Start }, ""},
		{"missing start", func(w *Window) { w.Start = time.Time{} }, "window_start"},
		{"missing end", func(w *Window) { w.End = time.Time{} }, "window_end"},
		{"start after end", func(w *Window) { w.Start = w.End.Add(time.Second) }, "window_start"},
		{"zero active", func(w *Window) { w.ActivePeriod = 0 }, "active_period"},
		{"negative inactive", func(w *Window) { w.InactivePeriod = -time.Second }, "inactive_period"},
		{"too long", func(w *Window) { w.InactivePeriod = MaxPeriod + time.Second }, "inactive_period"},
		{"fractional", func(w *Window) { w.ActivePeriod = 1500 * time.Millisecond }, "active_period"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := good
			tt.edit(&w)
			err := w.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *apperrors.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("error = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestRejectedWindowLeavesRecordUnset(t *testing.T) {
	c := newConfig(t)
	ctx := context.Background()

	bad := futureWindow(0, 10*time.Second)
	if err := c.SetGlobal(ctx, bad); !apperrors.IsValidation(err) {
		t.Fatalf("SetGlobal = %v", err)
	}
	if err := c.SetForNode(ctx, bad); !apperrors.IsValidation(err) {
		t.Fatalf("SetForNode = %v", err)
	}
	if _, ok, _ := c.Get(ctx); ok {
		t.Error("record set by a rejected window")
	}
}
