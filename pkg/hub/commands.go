package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/httputil"
	"github.com/DeBrosOfficial/loghub/pkg/schedule"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
)

// Command names the hub accepts without configuration.
const (
	CommandSetUpdateInterval = "set_update_interval"
	CommandSetLogLevel       = "set_log_level"
	CommandRestart           = "restart"
	CommandUploadNow         = "upload_now"
	CommandPing              = "ping"
)

// LogLevels are the values set_log_level accepts.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// Params is the parameter object of a submitted command, keyed by field.
type Params map[string]json.RawMessage

// paramCheck validates the parameters of one command kind.
type paramCheck func(Params) error

// Registry maps accepted command names to their parameter checks.
type Registry struct {
	checks map[string]paramCheck
}

// NewRegistry returns the built-in commands plus extra names that take
// free-form parameters.
func NewRegistry(extra ...string) (*Registry, error) {
	r := &Registry{checks: map[string]paramCheck{
		CommandSetUpdateInterval: func(p Params) error { _, err := parseWindow(p); return err },
		CommandSetLogLevel:       checkLogLevel,
		CommandRestart:           nil,
		CommandUploadNow:         nil,
		CommandPing:              nil,
	}}
	for _, name := range extra {
		if !httputil.ValidateCommandName(name) {
			return nil, fmt.Errorf("invalid command name %q", name)
		}
		if _, ok := r.checks[name]; !ok {
			r.checks[name] = nil
		}
	}
	return r, nil
}

// Names lists the accepted command names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.checks))
	for n := range r.checks {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Check validates name and params.
func (r *Registry) Check(name string, p Params) error {
	if !httputil.ValidateCommandName(name) {
		return apperrors.NewValidationError("command", "invalid command name", name)
	}
	check, ok := r.checks[name]
	if !ok {
		return apperrors.NewValidationError("command", fmt.Sprintf("unknown command %q", name), name)
	}
	if check == nil {
		return nil
	}
	return check(p)
}

// decodeParams accepts a JSON object, null or nothing.
func decodeParams(raw json.RawMessage) (Params, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Params{}, nil
	}
	if trimmed[0] != '{' {
		return nil, apperrors.NewValidationError("parameters", "parameters must be a JSON object", nil)
	}
	var p Params
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, apperrors.NewValidationError("parameters", "parameters must be a JSON object", nil)
	}
	return p, nil
}

// present reports whether key is set to something other than null.
func (p Params) present(key string) bool {
	v, ok := p[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// NodeID returns the target node. The legacy key "node id" is accepted too.
func (p Params) NodeID() (uint32, bool, error) {
	key := "node_id"
	if !p.present(key) {
		key = "node id"
		if !p.present(key) {
			return 0, false, nil
		}
	}
	n, err := strconv.ParseUint(string(bytes.TrimSpace(p[key])), 10, 32)
	if err != nil {
		return 0, false, apperrors.NewValidationError("node_id", "node_id must be an integer between 0 and 4294967295", string(p[key]))
	}
	return uint32(n), true, nil
}

func (p Params) str(key string) (string, error) {
	if !p.present(key) {
		return "", apperrors.NewValidationError(key, key+" is required", nil)
	}
	var s string
	if err := json.Unmarshal(p[key], &s); err != nil {
		return "", apperrors.NewValidationError(key, key+" must be a string", nil)
	}
	return s, nil
}

func (p Params) seconds(key string) (time.Duration, error) {
	if !p.present(key) {
		return 0, apperrors.NewValidationError(key, key+" is required", nil)
	}
	raw := string(bytes.TrimSpace(p[key]))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(key, key+" must be an integer number of seconds", raw)
	}
	limit := int64(schedule.MaxPeriod / time.Second)
	if n <= 0 || n > limit {
		return 0, apperrors.NewValidationError(key, fmt.Sprintf("%s must be between 1 and %d", key, limit), n)
	}
	return time.Duration(n) * time.Second, nil
}

func (p Params) timestamp(key string) (time.Time, error) {
	s, err := p.str(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := timeutil.Parse(s)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(key, err.Error(), s)
	}
	return t, nil
}

func parseWindow(p Params) (schedule.Window, error) {
	var w schedule.Window
	var err error
	if w.Start, err = p.timestamp("window_start"); err != nil {
		return w, err
	}
	if w.End, err = p.timestamp("window_end"); err != nil {
		return w, err
	}
	if w.ActivePeriod, err = p.seconds("active_period"); err != nil {
		return w, err
	}
	if w.InactivePeriod, err = p.seconds("inactive_period"); err != nil {
		return w, err
	}
	return w, w.Validate()
}

func checkLogLevel(p Params) error {
	level, err := p.str("level")
	if err != nil {
		return err
	}
	for _, l := range LogLevels {
		if strings.EqualFold(level, l) {
			return nil
		}
	}
	return apperrors.NewValidationError("level", "level must be one of "+strings.Join(LogLevels, ", "), level)
}
