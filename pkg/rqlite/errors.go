package rqlite

// errors.go defines error types specific to the rqlite ORM package.

import (
	"errors"
	"strings"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
)

var (
	// ErrNotPointer is returned when a non-pointer is passed where a pointer is required.
	ErrNotPointer = errors.New("dest must be a non-nil pointer")

	// ErrNotSlice is returned when dest is not a pointer to a slice.
	ErrNotSlice = errors.New("dest must be pointer to a slice")

	// ErrEmptyTable is returned when a query builder has no table.
	ErrEmptyTable = errors.New("query builder needs a table name")
)

// IsBusy reports whether err is a transient lock error from SQLite.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// StoreError wraps a failed store operation. Lock contention is marked
// retryable so callers answer 503 instead of 500.
func StoreError(operation string, err error) error {
	storeErr := apperrors.NewStoreError(operation, err)
	if IsBusy(err) {
		storeErr.AsRetryable()
	}
	return storeErr
}

func isNoSuchTable(err error) bool {
	// rqlite/sqlite error messages vary; keep it permissive
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "does not exist")
}
