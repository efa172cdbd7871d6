package gateway

import (
	"net/http"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
	"github.com/DeBrosOfficial/loghub/pkg/httputil"
	"github.com/go-chi/chi/v5/middleware"
)

type statusResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// traceID is the chi request id of r.
func traceID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// writeError writes err as the standard JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.WriteHTTPError(w, err, traceID(r))
}

// writeStatus writes an error body for statuses without a typed error.
func writeStatus(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	httputil.WriteJSON(w, status, &apperrors.HTTPError{Code: code, Message: msg, TraceID: traceID(r)})
}
