package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
)

// DecodeJSON decodes the request body as JSON into the provided value.
// Trailing data after the first value is rejected.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("body", "request body is empty", nil)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.NewValidationError("body", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), nil)
		}
		return apperrors.NewValidationError("body", "malformed JSON: "+err.Error(), nil)
	}
	if dec.More() {
		return apperrors.NewValidationError("body", "unexpected data after JSON value", nil)
	}
	return nil
}

// LimitBody caps the request body at maxBytes. Zero or negative disables the cap.
func LimitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
}

// HeaderUint32 parses a required header as an unsigned 32-bit integer.
func HeaderUint32(r *http.Request, name string) (uint32, error) {
	raw := strings.TrimSpace(r.Header.Get(name))
	if raw == "" {
		return 0, apperrors.NewValidationError(name, "header is required", nil)
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperrors.NewValidationError(name, "must be an unsigned 32-bit integer", raw)
	}
	return uint32(v), nil
}

// QueryUint64 parses a required query parameter as a non-negative integer
// that fits in an int64 row id.
func QueryUint64(r *http.Request, key string) (uint64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, apperrors.NewValidationError(key, "query parameter is required", nil)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v > math.MaxInt64 {
		return 0, apperrors.NewValidationError(key, "must be a non-negative integer", raw)
	}
	return v, nil
}
