package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/diligence/internal/core/domain"
)

func TestClassify_TextHeuristics(t *testing.T) {
	tests := []struct {
		err       error
		kind      domain.ErrorKind
		retryable bool
	}{
		{errors.New("429 Too Many Requests"), domain.ErrRateLimit, true},
		{errors.New("rate limit exceeded"), domain.ErrRateLimit, true},
		{errors.New("401 Unauthorized"), domain.ErrAuthentication, false},
		{errors.New("forbidden"), domain.ErrAuthentication, false},
		{errors.New("request timed out"), domain.ErrTimeout, true},
		{errors.New("timeout waiting for response"), domain.ErrTimeout, true},
		{errors.New("404 not found"), domain.ErrNotFound, false},
		{errors.New("invalid symbol"), domain.ErrInvalidRequest, false},
		{errors.New("bad request"), domain.ErrInvalidRequest, false},
		{errors.New("network is unreachable"), domain.ErrNetwork, true},
		{errors.New("connection reset by peer"), domain.ErrNetwork, true},
		{errors.New("500 Internal Server Error"), domain.ErrServer, true},
		{errors.New("something inexplicable"), domain.ErrServer, true},
	}

	for _, tt := range tests {
		got := Classify(tt.err, "alpha")
		if got.Kind != tt.kind {
			t.Errorf("Classify(%q).Kind = %s, want %s", tt.err, got.Kind, tt.kind)
		}
		if got.Retryable != tt.retryable {
			t.Errorf("Classify(%q).Retryable = %v, want %v", tt.err, got.Retryable, tt.retryable)
		}
		if got.Provider != "alpha" {
			t.Errorf("Classify(%q).Provider = %s, want alpha", tt.err, got.Provider)
		}
	}
}

func TestClassify_StatusHintBeatsText(t *testing.T) {
	// The message text says "not found" but the structured status wins.
	err := &domain.StatusError{Code: 429, Message: "resource not found"}

	got := Classify(err, "alpha")
	if got.Kind != domain.ErrRateLimit {
		t.Errorf("Kind = %s, want rate_limit", got.Kind)
	}
	if got.RetryAfter != defaultRetryAfter {
		t.Errorf("RetryAfter = %v, want default %v", got.RetryAfter, defaultRetryAfter)
	}
}

func TestClassify_StatusCodes(t *testing.T) {
	tests := []struct {
		code      int
		kind      domain.ErrorKind
		retryable bool
	}{
		{429, domain.ErrRateLimit, true},
		{401, domain.ErrAuthentication, false},
		{403, domain.ErrAuthentication, false},
		{404, domain.ErrNotFound, false},
		{400, domain.ErrInvalidRequest, false},
		{408, domain.ErrTimeout, true},
		{500, domain.ErrServer, true},
		{503, domain.ErrServer, true},
		{418, domain.ErrUnknown, true},
	}

	for _, tt := range tests {
		got := Classify(&domain.StatusError{Code: tt.code}, "alpha")
		if got.Kind != tt.kind || got.Retryable != tt.retryable {
			t.Errorf("status %d: got (%s, %v), want (%s, %v)",
				tt.code, got.Kind, got.Retryable, tt.kind, tt.retryable)
		}
	}
}

func TestClassify_ServerRetryAfter(t *testing.T) {
	err := &domain.StatusError{Code: 429, RetryAfter: 5 * time.Second}

	got := Classify(err, "alpha")
	if got.RetryAfter != 5*time.Second {
		t.Errorf("RetryAfter = %v, want 5s", got.RetryAfter)
	}
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	got := Classify(context.DeadlineExceeded, "alpha")
	if got.Kind != domain.ErrTimeout || !got.Retryable {
		t.Errorf("got (%s, %v), want (timeout, true)", got.Kind, got.Retryable)
	}
}

func TestClassify_PassThrough(t *testing.T) {
	orig := &domain.Error{Kind: domain.ErrUnknown, Message: "queue cleared", Retryable: false}

	got := Classify(orig, "alpha")
	if got != orig {
		t.Error("already-classified errors should pass through")
	}
	if got.Provider != "alpha" {
		t.Errorf("Provider = %s, want alpha", got.Provider)
	}
}
