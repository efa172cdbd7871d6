package gateway

import "time"

// Config holds configuration for the gateway server
type Config struct {
	ListenAddr string

	// Role keys. A route rejects every request while its key is empty.
	ProbeAPIKey        string
	LogCollectorAPIKey string
	CLIAPIKey          string

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration // per-request deadline applied by the router
	MaxBodyBytes   int64

	// Per-IP token bucket. Disabled when RateLimitPerMinute is zero.
	RateLimitPerMinute int
	RateLimitBurst     int

	// TrustProxyHeaders keys clients by X-Forwarded-For/X-Real-IP. Set it
	// only when every request arrives through a reverse proxy that rewrites
	// those headers.
	TrustProxyHeaders bool
}
