package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/diligence/internal/core/domain"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       time.Duration
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     30 * time.Second,
	Jitter:       250 * time.Millisecond,
}

// Action is the outcome of a retry decision.
type Action int

const (
	ActionRetry Action = iota
	ActionFallback
	ActionGiveUp
)

// Decision tells the coordinator what to do with a failed attempt.
type Decision struct {
	Action Action
	Delay  time.Duration
}

// Engine classifies failures, applies exponential backoff, and tracks
// rolling error statistics per provider.
type Engine struct {
	cfg    Config
	log    *errorLog
	logger *slog.Logger
}

// NewEngine creates a retry engine.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultConfig
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, log: newErrorLog(), logger: logger}
}

// Classify assigns a kind to a raw failure and records it in the rolling log.
func (e *Engine) Classify(err error, provider domain.ProviderID) *domain.Error {
	classified := Classify(err, provider)
	e.log.record(classified)
	return classified
}

// Decide returns the next action for a classified failure. Non-retryable
// errors skip straight to fallback-or-give-up; retryable errors back off
// until attempts are exhausted. A rate-limit error with a server-specified
// wait never sleeps less than that wait.
func (e *Engine) Decide(classified *domain.Error, attempt int, hasFallback bool) Decision {
	if classified.Retryable && attempt < e.cfg.MaxAttempts {
		delay := e.Delay(attempt)
		if classified.Kind == domain.ErrRateLimit && classified.RetryAfter > delay {
			delay = classified.RetryAfter
		}
		return Decision{Action: ActionRetry, Delay: delay}
	}
	if hasFallback {
		return Decision{Action: ActionFallback}
	}
	return Decision{Action: ActionGiveUp}
}

// Delay computes the backoff before attempt+1. Exponential with cap and
// jitter; monotonically non-decreasing up to the cap when jitter is zero.
func (e *Engine) Delay(attempt int) time.Duration {
	b := e.backoff()
	var delay time.Duration
	for i := 0; i < attempt; i++ {
		next, stop := b.Next()
		if stop {
			break
		}
		delay = next
	}
	return delay
}

func (e *Engine) backoff() retry.Backoff {
	b := retry.NewExponential(e.cfg.InitialDelay)
	if e.cfg.Jitter > 0 {
		b = retry.WithJitter(e.cfg.Jitter, b)
	}
	return retry.WithCappedDuration(e.cfg.MaxDelay, b)
}

// Do runs fn with classification and backoff until it succeeds, a
// non-retryable error appears, or attempts are exhausted. The returned error
// is always a *domain.Error; trying a fallback provider is the caller's job.
func (e *Engine) Do(
	ctx context.Context,
	provider domain.ProviderID,
	fn func(ctx context.Context) (any, error),
) (any, error) {
	b := e.backoff()
	var lastErr *domain.Error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}

		lastErr = e.Classify(err, provider)
		if !lastErr.Retryable {
			return nil, lastErr
		}
		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay, stop := b.Next()
		if stop {
			break
		}
		if lastErr.Kind == domain.ErrRateLimit && lastErr.RetryAfter > delay {
			delay = lastErr.RetryAfter
		}

		e.logger.Debug("retrying upstream call",
			"provider", provider, "attempt", attempt, "kind", lastErr.Kind, "delay", delay)

		select {
		case <-ctx.Done():
			return nil, e.Classify(ctx.Err(), provider)
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// ErrorRate counts classified errors for the provider within the trailing
// rate window.
func (e *Engine) ErrorRate(id domain.ProviderID) int {
	return e.log.rate(id)
}

// KindCounts summarizes the retained error log for the provider by kind.
func (e *Engine) KindCounts(id domain.ProviderID) map[domain.ErrorKind]int {
	return e.log.kindCounts(id)
}

// Healthy reports false when any provider's recent error rate exceeds the
// health ceiling.
func (e *Engine) Healthy() bool {
	return e.log.healthy()
}
