// Package retry turns raw upstream failures into the typed error taxonomy
// and drives retry, backoff, and fallback decisions. Classification prefers
// a structured status attached by the transport and falls back to text
// heuristics for unstructured errors.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vietddude/diligence/internal/core/domain"
)

// defaultRetryAfter applies to rate-limit errors when the server gave no
// retry-after hint.
const defaultRetryAfter = 60 * time.Second

// Classify assigns an error kind to a raw failure. Already-classified errors
// pass through with the provider filled in.
func Classify(err error, provider domain.ProviderID) *domain.Error {
	var classified *domain.Error
	if errors.As(err, &classified) {
		if classified.Provider == "" {
			classified.Provider = provider
		}
		return classified
	}

	e := &domain.Error{
		Message:    err.Error(),
		Provider:   provider,
		OccurredAt: time.Now(),
	}

	var status *domain.StatusError
	if errors.As(err, &status) {
		e.Kind, e.Retryable = kindForStatus(status.Code)
		if e.Kind == domain.ErrRateLimit {
			e.RetryAfter = status.RetryAfter
			if e.RetryAfter <= 0 {
				e.RetryAfter = defaultRetryAfter
			}
		}
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) {
		e.Kind = domain.ErrTimeout
		e.Retryable = true
		return e
	}

	e.Kind, e.Retryable = kindForText(err.Error())
	if e.Kind == domain.ErrRateLimit {
		e.RetryAfter = defaultRetryAfter
	}
	return e
}

func kindForStatus(code int) (domain.ErrorKind, bool) {
	switch {
	case code == 429:
		return domain.ErrRateLimit, true
	case code == 401 || code == 403:
		return domain.ErrAuthentication, false
	case code == 404:
		return domain.ErrNotFound, false
	case code == 400:
		return domain.ErrInvalidRequest, false
	case code == 408:
		return domain.ErrTimeout, true
	case code >= 500:
		return domain.ErrServer, true
	default:
		return domain.ErrUnknown, true
	}
}

// kindForText is the heuristic layer for providers whose transports only
// surface message strings.
func kindForText(msg string) (domain.ErrorKind, bool) {
	s := strings.ToLower(msg)

	switch {
	case strings.Contains(s, "429"),
		strings.Contains(s, "rate limit"),
		strings.Contains(s, "too many requests"):
		return domain.ErrRateLimit, true
	case strings.Contains(s, "401"),
		strings.Contains(s, "403"),
		strings.Contains(s, "unauthorized"),
		strings.Contains(s, "forbidden"):
		return domain.ErrAuthentication, false
	case strings.Contains(s, "timed out"),
		strings.Contains(s, "timeout"):
		return domain.ErrTimeout, true
	case strings.Contains(s, "404"),
		strings.Contains(s, "not found"):
		return domain.ErrNotFound, false
	case strings.Contains(s, "400"),
		strings.Contains(s, "bad request"),
		strings.Contains(s, "invalid"):
		return domain.ErrInvalidRequest, false
	case strings.Contains(s, "network"),
		strings.Contains(s, "connection"):
		return domain.ErrNetwork, true
	default:
		return domain.ErrServer, true
	}
}
