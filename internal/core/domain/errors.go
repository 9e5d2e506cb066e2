package domain

import (
	"fmt"
	"time"
)

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	ErrRateLimit      ErrorKind = "rate_limit"
	ErrAuthentication ErrorKind = "authentication"
	ErrTimeout        ErrorKind = "timeout"
	ErrNotFound       ErrorKind = "not_found"
	ErrInvalidRequest ErrorKind = "invalid_request"
	ErrNetwork        ErrorKind = "network_error"
	ErrServer         ErrorKind = "server_error"
	ErrUnknown        ErrorKind = "unknown"
)

// Error is a classified upstream failure. It carries enough context for the
// retry engine to decide between retry, fallback, and give-up.
type Error struct {
	Kind       ErrorKind
	Message    string
	Provider   ProviderID
	Retryable  bool
	RetryAfter time.Duration // 0 when the server gave no hint
	OccurredAt time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Kind, e.Message)
}

// StatusError lets a transport attach a structured HTTP status to a failure
// so classification does not have to rely on text matching.
type StatusError struct {
	Code       int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("status %d", e.Code)
}
