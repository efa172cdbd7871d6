package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status code for an error.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return codeToHTTPStatus(customErr.Code())
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}

func codeToHTTPStatus(code string) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTPError converts an error to an HTTPError.
func ToHTTPError(err error, traceID string) *HTTPError {
	if err == nil {
		return &HTTPError{
			Status:  http.StatusOK,
			Code:    CodeOK,
			Message: "success",
			TraceID: traceID,
		}
	}

	httpErr := &HTTPError{
		Status:  StatusCode(err),
		TraceID: traceID,
		Details: make(map[string]string),
	}

	var customErr Error
	if errors.As(err, &customErr) {
		httpErr.Code = customErr.Code()
		httpErr.Message = customErr.Message()
	} else {
		httpErr.Code = HTTPStatusToCode(httpErr.Status)
		httpErr.Message = err.Error()
	}

	var (
		validationErr   *ValidationError
		unauthorizedErr *UnauthorizedError
		storeErr        *StoreError
		internalErr     *InternalError
		rateLimitErr    *RateLimitError
	)

	switch {
	case errors.As(err, &validationErr):
		if validationErr.Field != "" {
			httpErr.Details["field"] = validationErr.Field
		}
	case errors.As(err, &unauthorizedErr):
		if unauthorizedErr.Realm != "" {
			httpErr.Details["realm"] = unauthorizedErr.Realm
		}
	case errors.As(err, &storeErr):
		// Store causes can carry SQL text; only the operation name leaves the process.
		httpErr.Message = storeErr.Message()
		if storeErr.Operation != "" {
			httpErr.Details["operation"] = storeErr.Operation
		}
		if storeErr.Retryable {
			httpErr.Details["retry_after"] = strconv.Itoa(StoreRetryAfter)
		}
	case errors.As(err, &internalErr):
		httpErr.Message = internalErr.Message()
		if internalErr.Operation != "" {
			httpErr.Details["operation"] = internalErr.Operation
		}
	case errors.As(err, &rateLimitErr):
		if rateLimitErr.RetryAfter > 0 {
			httpErr.Details["retry_after"] = strconv.Itoa(rateLimitErr.RetryAfter)
		}
	}

	if len(httpErr.Details) == 0 {
		httpErr.Details = nil
	}
	return httpErr
}

// WriteHTTPError writes an error response to an http.ResponseWriter.
func WriteHTTPError(w http.ResponseWriter, err error, traceID string) {
	httpErr := ToHTTPError(err, traceID)
	w.Header().Set("Content-Type", "application/json")

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) && rateLimitErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(rateLimitErr.RetryAfter))
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.Retryable {
		w.Header().Set("Retry-After", strconv.Itoa(StoreRetryAfter))
	}

	var unauthorizedErr *UnauthorizedError
	if errors.As(err, &unauthorizedErr) && unauthorizedErr.Realm != "" {
		w.Header().Set("WWW-Authenticate", `ApiKey realm="`+unauthorizedErr.Realm+`"`)
	}

	w.WriteHeader(httpErr.Status)
	_ = json.NewEncoder(w).Encode(httpErr)
}

// HTTPStatusToCode converts an HTTP status code to an error code.
func HTTPStatusToCode(status int) string {
	switch status {
	case http.StatusOK:
		return CodeOK
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimit
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		if status >= 400 && status < 500 {
			return CodeValidation
		}
		return CodeInternal
	}
}
