package httputil

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader is the header every caller role sends its shared secret in.
const APIKeyHeader = "X-Api-Key"

// ExtractAPIKey extracts an API key from the request:
// 1. X-Api-Key header (highest priority)
// 2. Authorization header with "ApiKey" scheme
//
// Query parameters are never consulted so keys stay out of access logs.
func ExtractAPIKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(APIKeyHeader)); v != "" {
		return v
	}

	auth := r.Header.Get("Authorization")
	if auth != "" {
		lower := strings.ToLower(auth)
		if strings.HasPrefix(lower, "apikey ") {
			return strings.TrimSpace(auth[len("ApiKey "):])
		}
	}

	return ""
}

// KeyMatches compares a presented key against the configured one in constant
// time. An empty configured key never matches.
func KeyMatches(presented, configured string) bool {
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}
