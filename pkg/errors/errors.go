package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common sentinel errors for quick checks
var (
	// ErrUnauthorized is returned when the API key is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput is returned when request input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned for unknown routes.
	ErrNotFound = errors.New("not found")

	// ErrInternal is returned when an internal error occurs.
	ErrInternal = errors.New("internal error")
)

// Error is the base interface for all custom errors in the hub.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

// Stack returns the captured stack trace.
func (e *BaseError) Stack() []uintptr {
	return e.stack
}

func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// ValidationError represents an input validation error (HTTP 400).
type ValidationError struct {
	*BaseError
	Field string
	Value interface{}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			code:    CodeValidation,
			message: message,
			stack:   captureStack(1),
		},
		Field: field,
		Value: value,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// UnauthorizedError represents a failed API key check (HTTP 401).
type UnauthorizedError struct {
	*BaseError
	Realm string
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string) *UnauthorizedError {
	if message == "" {
		message = "authentication required"
	}
	return &UnauthorizedError{
		BaseError: &BaseError{
			code:    CodeUnauthorized,
			message: message,
			stack:   captureStack(1),
		},
	}
}

// WithRealm sets the authentication realm.
func (e *UnauthorizedError) WithRealm(realm string) *UnauthorizedError {
	e.Realm = realm
	return e
}

// StoreRetryAfter is the Retry-After hint, in seconds, sent with a retryable
// store error.
const StoreRetryAfter = 1

// StoreError represents a persistence failure (HTTP 500, or 503 when
// Retryable).
type StoreError struct {
	*BaseError
	Operation string
	Retryable bool
}

// NewStoreError creates a store error for the named operation.
func NewStoreError(operation string, cause error) *StoreError {
	message := "store error"
	if operation != "" {
		message = fmt.Sprintf("%s failed", operation)
	}
	return &StoreError{
		BaseError: &BaseError{
			code:    CodeDatabaseError,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
		Operation: operation,
	}
}

// AsRetryable marks the failure as transient, such as a lock held by another
// writer.
func (e *StoreError) AsRetryable() *StoreError {
	e.Retryable = true
	e.code = CodeUnavailable
	return e
}

// InternalError represents an internal server error.
type InternalError struct {
	*BaseError
	Operation string
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *InternalError {
	if message == "" {
		message = "internal error"
	}
	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
	}
}

// WithOperation sets the operation context.
func (e *InternalError) WithOperation(op string) *InternalError {
	e.Operation = op
	return e
}

// RateLimitError represents a rate limiting error.
type RateLimitError struct {
	*BaseError
	RetryAfter int // seconds
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(retryAfter int) *RateLimitError {
	return &RateLimitError{
		BaseError: &BaseError{
			code:    CodeRateLimit,
			message: "rate limit exceeded",
			stack:   captureStack(1),
		},
		RetryAfter: retryAfter,
	}
}

// Wrap wraps an error with additional context.
// Typed errors keep their code; anything else becomes an InternalError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if e, ok := err.(Error); ok {
		return &BaseError{
			code:    e.Code(),
			message: message,
			cause:   err,
			stack:   captureStack(1),
		}
	}

	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   err,
			stack:   captureStack(1),
		},
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// New creates a new error with a message.
func New(message string) error {
	return &BaseError{
		code:    CodeInternal,
		message: message,
		stack:   captureStack(1),
	}
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...))
}
