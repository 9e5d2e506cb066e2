package domain

import "time"

// Request is the only input type crossing the data-access core's boundary.
// Zero values mean "use the provider default".
type Request struct {
	ID       string
	Provider ProviderID
	Endpoint string
	Params   map[string]any

	// Priority orders queued calls for the same provider; higher drains
	// sooner. Default 0.
	Priority int

	// CacheKey overrides the derived key when set.
	CacheKey string

	// CacheTTL overrides the provider default TTL when > 0.
	CacheTTL time.Duration

	// SkipCache forces a fresh upstream call.
	SkipCache bool

	// DisallowFallback pins the request to its primary provider.
	DisallowFallback bool

	// Timeout overrides the provider default per-call timeout when > 0.
	Timeout time.Duration
}

// Response is the uniform envelope returned for every request. Failures are
// carried in Err with Success=false; the core never surfaces a bare error.
type Response struct {
	Success   bool
	Data      any
	Err       *Error
	Cached    bool
	Timestamp time.Time

	// Source is the provider that actually served (or last failed) the
	// request; it differs from Request.Provider when a fallback fired.
	Source    ProviderID
	RequestID string
}
