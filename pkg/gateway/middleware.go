package gateway

import (
	"net"
	"net/http"
	"strings"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/httputil"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"go.uber.org/zap"
)

// role names the caller class a route admits.
type role string

const (
	roleProbe     role = "probe"
	roleCollector role = "log_collector"
	roleOperator  role = "cli"
)

func (g *Gateway) keyFor(r role) string {
	switch r {
	case roleProbe:
		return g.cfg.ProbeAPIKey
	case roleCollector:
		return g.cfg.LogCollectorAPIKey
	case roleOperator:
		return g.cfg.CLIAPIKey
	}
	return ""
}

// loggingMiddleware logs basic request info and duration
func (g *Gateway) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := g.clock.Now()
		srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)
		dur := g.clock.Since(start)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", srw.status),
			zap.Int("bytes", srw.bytes),
			zap.String("duration", dur.String()),
			zap.String("request_id", traceID(r)),
		}
		if srw.status >= http.StatusInternalServerError {
			g.logger.ComponentWarn(logging.ComponentGateway, "request", fields...)
			return
		}
		g.logger.ComponentInfo(logging.ComponentGateway, "request", fields...)
	})
}

// requireKey admits only requests carrying the key configured for rl.
func (g *Gateway) requireKey(rl role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := httputil.ExtractAPIKey(r)
			if key == "" {
				writeError(w, r, apperrors.NewUnauthorizedError("missing API key").WithRealm(string(rl)))
				return
			}
			if !httputil.KeyMatches(key, g.keyFor(rl)) {
				g.logger.ComponentWarn(logging.ComponentGateway, "rejected API key",
					zap.String("role", string(rl)),
					zap.String("path", r.URL.Path),
					zap.String("client_ip", getClientIP(r, g.cfg.TrustProxyHeaders)),
				)
				writeError(w, r, apperrors.NewUnauthorizedError("invalid API key").WithRealm(string(rl)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the peer address of r. Forwarded headers are honoured
// only when trustProxy is set.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// X-Forwarded-For may contain a list of IPs, take the first
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
		if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
			return xr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
