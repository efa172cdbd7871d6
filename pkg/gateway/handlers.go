package gateway

import (
	"errors"
	"net/http"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/httputil"
	"github.com/DeBrosOfficial/loghub/pkg/hub"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/logstore"
	"go.uber.org/zap"
)

// NodeIDHeader carries the uploading node's id.
const NodeIDHeader = "X-Node-ID"

type updateRequest struct {
	Logs []hub.LogLine `json:"logs"`
}

type downloadResponse struct {
	Logs []logstore.Record `json:"logs"`
}

// updateHandler is POST /update: store a node's batch and hand back its commands.
func (g *Gateway) updateHandler(w http.ResponseWriter, r *http.Request) {
	nodeID, err := httputil.HeaderUint32(r, NodeIDHeader)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.LimitBody(w, r, g.cfg.MaxBodyBytes)
	var req updateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Logs == nil {
		writeError(w, r, apperrors.NewValidationError("logs", "logs is required", nil))
		return
	}

	res, err := g.hub.Ingest(r.Context(), nodeID, req.Logs)
	if err != nil {
		g.logFailure("ingest failed", err, zap.Uint32("node_id", nodeID))
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// downloadHandler is GET /download?last_log_message_id=N.
func (g *Gateway) downloadHandler(w http.ResponseWriter, r *http.Request) {
	lastID, err := httputil.QueryUint64(r, "last_log_message_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := g.hub.Download(r.Context(), int64(lastID))
	if err != nil {
		g.logFailure("download failed", err, zap.Uint64("last_log_message_id", lastID))
		writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, downloadResponse{Logs: records})
}

// commandHandler is POST /command. The reply is a plain "OK".
func (g *Gateway) commandHandler(w http.ResponseWriter, r *http.Request) {
	httputil.LimitBody(w, r, g.cfg.MaxBodyBytes)
	var req hub.CommandRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := g.hub.SubmitCommand(r.Context(), req)
	if err != nil {
		g.logFailure("command rejected", err, zap.String("command", req.Command))
		writeError(w, r, err)
		return
	}

	g.logger.ComponentInfo(logging.ComponentGateway, "command accepted",
		zap.String("command", req.Command),
		zap.Bool("scheduled", res.Scheduled),
		zap.Int("nodes", len(res.Nodes)),
	)
	httputil.WriteText(w, http.StatusOK, "OK")
}

// logFailure logs server-side failures at error level, with the capture stack
// when the error carries one, and client mistakes at debug.
func (g *Gateway) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if apperrors.IsClientError(apperrors.GetErrorCode(err)) {
		g.logger.ComponentDebug(logging.ComponentGateway, msg, fields...)
		return
	}
	var traced interface{ StackTrace() string }
	if errors.As(err, &traced) {
		if st := traced.StackTrace(); st != "" {
			fields = append(fields, zap.String("stack", st))
		}
	}
	g.logger.ComponentError(logging.ComponentGateway, msg, fields...)
}
