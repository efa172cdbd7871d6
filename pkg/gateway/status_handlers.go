package gateway

import (
	"net/http"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/httputil"
	"github.com/DeBrosOfficial/loghub/pkg/hub"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"go.uber.org/zap"
)

// healthResponse is the JSON structure used by healthHandler
type healthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	Database  string    `json:"database,omitempty"`
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		StartedAt: g.startedAt,
		Uptime:    g.clock.Since(g.startedAt).String(),
	}
	code := http.StatusOK

	if g.db != nil {
		resp.Database = "ok"
		if err := g.db.Ping(r.Context()); err != nil {
			g.logger.ComponentWarn(logging.ComponentDatabase, "health check ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	httputil.WriteJSON(w, code, resp)
}

// statusHandler reports the hub state next to server uptime.
func (g *Gateway) statusHandler(w http.ResponseWriter, r *http.Request) {
	st, err := g.hub.Status(r.Context())
	if err != nil {
		g.logFailure("status failed", err)
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Server healthResponse `json:"server"`
		Hub    *hub.Status    `json:"hub"`
	}{
		Server: healthResponse{
			Status:    "ok",
			StartedAt: g.startedAt,
			Uptime:    g.clock.Since(g.startedAt).String(),
		},
		Hub: st,
	})
}
