package errors

// Error codes for categorizing errors.
// These codes map to HTTP status codes in StatusCode.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeUnauthorized indicates the API key was missing or wrong.
	CodeUnauthorized = "UNAUTHORIZED"

	// CodeNotFound indicates an unknown route or resource.
	CodeNotFound = "NOT_FOUND"

	// CodeRateLimit indicates rate limit was exceeded.
	CodeRateLimit = "RATE_LIMIT_EXCEEDED"

	// CodeDatabaseError indicates a persistence operation failed.
	CodeDatabaseError = "DATABASE_ERROR"

	// CodeUnavailable indicates the store was busy; the request may be retried.
	CodeUnavailable = "SERVICE_UNAVAILABLE"

	// CodeCacheError indicates the marker cache failed.
	CodeCacheError = "CACHE_ERROR"

	// CodeConfigError indicates a configuration error.
	CodeConfigError = "CONFIG_ERROR"

	// CodeSerializationError indicates serialization/deserialization failed.
	CodeSerializationError = "SERIALIZATION_ERROR"
)

// ErrorCategory represents a high-level error category.
type ErrorCategory string

const (
	// CategoryClient indicates a client-side error (4xx).
	CategoryClient ErrorCategory = "CLIENT_ERROR"

	// CategoryAuth indicates an authentication error.
	CategoryAuth ErrorCategory = "AUTH_ERROR"

	// CategoryStore indicates a persistence error.
	CategoryStore ErrorCategory = "STORE_ERROR"

	// CategoryServer indicates any other server-side error (5xx).
	CategoryServer ErrorCategory = "SERVER_ERROR"
)

// GetCategory returns the category for an error code.
func GetCategory(code string) ErrorCategory {
	switch code {
	case CodeValidation, CodeNotFound, CodeRateLimit:
		return CategoryClient
	case CodeUnauthorized:
		return CategoryAuth
	case CodeDatabaseError, CodeUnavailable, CodeCacheError:
		return CategoryStore
	default:
		return CategoryServer
	}
}

// IsClientError returns true if the error code is a client error (4xx).
func IsClientError(code string) bool {
	switch GetCategory(code) {
	case CategoryClient, CategoryAuth:
		return true
	default:
		return false
	}
}
