package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name          string
		field         string
		message       string
		value         interface{}
		expectedError string
	}{
		{
			name:          "with field",
			field:         "node_id",
			message:       "must be a non-negative integer",
			value:         "-1",
			expectedError: "validation error: node_id: must be a non-negative integer",
		},
		{
			name:          "without field",
			field:         "",
			message:       "malformed JSON",
			value:         nil,
			expectedError: "validation error: malformed JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message, tt.value)
			if err.Error() != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, err.Error())
			}
			if err.Code() != CodeValidation {
				t.Errorf("Expected code %q, got %q", CodeValidation, err.Code())
			}
			if err.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, err.Field)
			}
		})
	}
}

func TestUnauthorizedError(t *testing.T) {
	err := NewUnauthorizedError("")
	if err.Message() != "authentication required" {
		t.Errorf("Expected default message, got %q", err.Message())
	}

	err = NewUnauthorizedError("wrong key").WithRealm("probe")
	if err.Realm != "probe" {
		t.Errorf("Expected realm %q, got %q", "probe", err.Realm)
	}
	if err.Code() != CodeUnauthorized {
		t.Errorf("Expected code %q, got %q", CodeUnauthorized, err.Code())
	}
}

func TestStoreError(t *testing.T) {
	cause := errors.New("database is locked")
	err := NewStoreError("append logs", cause)

	if err.Error() != "append logs failed: database is locked" {
		t.Errorf("Unexpected error string %q", err.Error())
	}
	if err.Code() != CodeDatabaseError {
		t.Errorf("Expected code %q, got %q", CodeDatabaseError, err.Code())
	}
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}
	if err.Operation != "append logs" {
		t.Errorf("Expected operation %q, got %q", "append logs", err.Operation)
	}
	if err.Retryable {
		t.Error("Expected a fresh store error not to be retryable")
	}

	err.AsRetryable()
	if !err.Retryable || err.Code() != CodeUnavailable {
		t.Errorf("Expected retryable %q, got %v %q", CodeUnavailable, err.Retryable, err.Code())
	}
	if !IsStore(err) {
		t.Error("Expected retryable error to stay a store error")
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if Wrap(nil, "context") != nil {
			t.Error("Expected nil")
		}
	})

	t.Run("typed error keeps code", func(t *testing.T) {
		base := NewValidationError("timestamp", "bad", nil)
		wrapped := Wrap(base, "decode batch")
		if GetErrorCode(wrapped) != CodeValidation {
			t.Errorf("Expected %q, got %q", CodeValidation, GetErrorCode(wrapped))
		}
		if !IsValidation(wrapped) {
			t.Error("Expected wrapped error to still be a validation error")
		}
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		wrapped := Wrapf(fmt.Errorf("boom"), "step %d", 2)
		if GetErrorCode(wrapped) != CodeInternal {
			t.Errorf("Expected %q, got %q", CodeInternal, GetErrorCode(wrapped))
		}
		if !strings.HasPrefix(wrapped.Error(), "step 2") {
			t.Errorf("Unexpected message %q", wrapped.Error())
		}
	})
}

func TestHelpers(t *testing.T) {
	store := NewStoreError("drain", errors.New("x"))
	if !IsStore(store) || IsValidation(store) || IsUnauthorized(store) {
		t.Error("StoreError misclassified")
	}
	if !IsUnauthorized(fmt.Errorf("gateway: %w", ErrUnauthorized)) {
		t.Error("Expected wrapped sentinel to be unauthorized")
	}
	if IsStore(nil) || IsValidation(nil) || IsUnauthorized(nil) {
		t.Error("nil must not match any class")
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		code   string
		cat    ErrorCategory
		client bool
	}{
		{CodeValidation, CategoryClient, true},
		{CodeUnauthorized, CategoryAuth, true},
		{CodeDatabaseError, CategoryStore, false},
		{CodeUnavailable, CategoryStore, false},
		{CodeInternal, CategoryServer, false},
	}
	for _, tt := range tests {
		if got := GetCategory(tt.code); got != tt.cat {
			t.Errorf("GetCategory(%q) = %q, want %q", tt.code, got, tt.cat)
		}
		if got := IsClientError(tt.code); got != tt.client {
			t.Errorf("IsClientError(%q) = %v, want %v", tt.code, got, tt.client)
		}
	}
}

func TestStackTrace(t *testing.T) {
	err := NewInternalError("boom", nil)
	if !strings.Contains(err.StackTrace(), "TestStackTrace") {
		t.Error("Expected stack trace to include test function")
	}
}
