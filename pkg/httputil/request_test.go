package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name:    "valid json",
			body:    `{"key": "value"}`,
			wantErr: false,
		},
		{
			name:    "invalid json",
			body:    `{invalid}`,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: true,
		},
		{
			name:    "trailing value",
			body:    `{} {}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			var result map[string]any
			err := DecodeJSON(req, &result)

			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsValidation(err) {
				t.Errorf("DecodeJSON() error should be a validation error, got %T", err)
			}
		})
	}
}

func TestDecodeJSONBodyLimit(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"`+strings.Repeat("x", 64)+`"}`))
	LimitBody(w, req, 16)

	var result map[string]any
	err := DecodeJSON(req, &result)
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHeaderUint32(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    uint32
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"max", "4294967295", 4294967295, false},
		{"padded", " 17 ", 17, false},
		{"missing", "", 0, true},
		{"negative", "-1", 0, true},
		{"overflow", "4294967296", 0, true},
		{"text", "node-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.value != "" {
				req.Header.Set("X-Node-ID", tt.value)
			}
			got, err := HeaderUint32(req, "X-Node-ID")
			if (err != nil) != tt.wantErr {
				t.Fatalf("HeaderUint32() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HeaderUint32() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueryUint64(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    uint64
		wantErr bool
	}{
		{"zero", "?last_log_message_id=0", 0, false},
		{"value", "?last_log_message_id=42", 42, false},
		{"missing", "", 0, true},
		{"negative", "?last_log_message_id=-3", 0, true},
		{"float", "?last_log_message_id=1.5", 0, true},
		{"beyond int64", "?last_log_message_id=9223372036854775808", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/download"+tt.query, nil)
			got, err := QueryUint64(req, "last_log_message_id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("QueryUint64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("QueryUint64() = %d, want %d", got, tt.want)
			}
		})
	}
}
