package errors

import "errors"

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr) || errors.Is(err, ErrInvalidInput)
}

// IsUnauthorized checks if an error indicates a failed key check.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}

	var unauthorizedErr *UnauthorizedError
	return errors.As(err, &unauthorizedErr) || errors.Is(err, ErrUnauthorized)
}

// IsStore checks if an error is a persistence failure.
func IsStore(err error) bool {
	if err == nil {
		return false
	}

	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}

	switch {
	case IsUnauthorized(err):
		return CodeUnauthorized
	case IsValidation(err):
		return CodeValidation
	default:
		return CodeInternal
	}
}
