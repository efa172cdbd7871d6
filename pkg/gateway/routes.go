package gateway

import (
	"net/http"
	"time"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (g *Gateway) routes() chi.Router {
	r := chi.NewRouter()

	// Order: request id -> recoverer -> logging -> rate limit -> timeout -> auth -> handler
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(g.loggingMiddleware)
	r.Use(g.rateLimitMiddleware)
	timeout := g.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/health", g.healthHandler)
	r.Get("/v1/health", g.healthHandler)

	r.With(g.requireKey(roleProbe)).Post("/update", g.updateHandler)
	r.With(g.requireKey(roleCollector)).Get("/download", g.downloadHandler)
	r.With(g.requireKey(roleOperator)).Post("/command", g.commandHandler)
	r.With(g.requireKey(roleOperator)).Get("/v1/status", g.statusHandler)

	return r
}
