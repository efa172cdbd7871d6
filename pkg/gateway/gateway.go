// Package gateway is the HTTP surface of the hub.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/hub"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Gateway routes HTTP requests to the hub service.
type Gateway struct {
	logger      *logging.ColoredLogger
	cfg         *Config
	hub         *hub.Service
	db          Pinger
	clock       clock.Clock
	rateLimiter *RateLimiter
	router      chi.Router
	server      *http.Server
	startedAt   time.Time
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithClock replaces the wall clock used for uptime and rate limiting.
func WithClock(c clock.Clock) Option {
	return func(g *Gateway) { g.clock = c }
}

// WithPinger makes /health report database reachability.
func WithPinger(p Pinger) Option {
	return func(g *Gateway) { g.db = p }
}

// New creates and initializes a new Gateway instance
func New(logger *logging.ColoredLogger, cfg *Config, svc *hub.Service, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("gateway: config is required")
	}
	if svc == nil {
		return nil, errors.New("gateway: hub service is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	g := &Gateway{
		logger: logger,
		cfg:    cfg,
		hub:    svc,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.startedAt = g.clock.Now()

	if cfg.RateLimitPerMinute > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = cfg.RateLimitPerMinute
		}
		g.rateLimiter = NewRateLimiter(cfg.RateLimitPerMinute, burst, g.clock)
	}

	g.router = g.routes()
	return g, nil
}

// Handler returns the routed handler, for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.router
}
