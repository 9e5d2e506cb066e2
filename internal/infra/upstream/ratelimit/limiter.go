// Package ratelimit implements the per-provider sliding-window rate limiter
// with a concurrency cap and priority queueing. Each provider gets its own
// drain goroutine that admits queued calls as window slots free up.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/diligence/internal/core/domain"
)

const (
	// callSpacing is the pause between queued admissions to avoid bursting.
	callSpacing = 25 * time.Millisecond

	// maxHealthyDepth is the queue depth past which the limiter reports
	// unhealthy for that provider.
	maxHealthyDepth = 100
)

// Limit is a provider's static rate limit.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
	MaxConcurrent     int
}

// Status is a snapshot of one provider's limiter state.
type Status struct {
	QueueDepth    int
	InFlight      int
	WindowCount   int
	EstimatedWait time.Duration
}

type providerState struct {
	limit Limit

	mu         sync.Mutex
	timestamps []time.Time
	inflight   int
	queue      taskQueue

	wake chan struct{}
	done chan struct{}
}

// Limiter owns all per-provider window state.
type Limiter struct {
	mu        sync.RWMutex
	providers map[domain.ProviderID]*providerState
	logger    *slog.Logger
	wg        sync.WaitGroup
	closed    bool
}

// New creates an empty limiter.
func New(logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		providers: make(map[domain.ProviderID]*providerState),
		logger:    logger,
	}
}

// Register creates the window state for a provider and starts its drain
// goroutine. Registering an existing id replaces its limit but keeps state.
func (l *Limiter) Register(id domain.ProviderID, limit Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if st, ok := l.providers[id]; ok {
		st.mu.Lock()
		st.limit = limit
		st.mu.Unlock()
		return
	}

	st := &providerState{
		limit: limit,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	l.providers[id] = st

	l.wg.Add(1)
	go l.drain(id, st)
}

// Execute runs fn under the provider's rate limit. If a slot is free the call
// runs immediately on the caller's goroutine; otherwise it queues by priority
// and blocks until drained, the context is cancelled, or the queue is cleared.
func (l *Limiter) Execute(
	ctx context.Context,
	id domain.ProviderID,
	fn func(ctx context.Context) (any, error),
	priority int,
) (any, error) {
	st, err := l.state(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if st.admissibleLocked(time.Now()) {
		st.inflight++
		st.timestamps = append(st.timestamps, time.Now())
		st.mu.Unlock()

		value, err := fn(ctx)
		l.finish(st)
		return value, err
	}

	t := &task{
		ctx:        ctx,
		fn:         fn,
		priority:   priority,
		enqueuedAt: time.Now(),
		result:     make(chan taskResult, 1),
	}
	st.queue.push(t)
	st.mu.Unlock()
	st.signal()

	select {
	case res := <-t.result:
		return res.value, res.err
	case <-ctx.Done():
		// The drain loop skips cancelled tasks so the slot is not wasted.
		t.cancelled.Store(true)
		return nil, ctx.Err()
	}
}

// ClearQueue rejects every pending call for the provider with a terminal
// non-retryable error and empties the queue. In-flight calls are not
// interrupted.
func (l *Limiter) ClearQueue(id domain.ProviderID) {
	st, err := l.state(id)
	if err != nil {
		return
	}

	st.mu.Lock()
	cleared := len(st.queue)
	for {
		t := st.queue.pop()
		if t == nil {
			break
		}
		t.result <- taskResult{err: &domain.Error{
			Kind:       domain.ErrUnknown,
			Message:    "queue cleared",
			Provider:   id,
			Retryable:  false,
			OccurredAt: time.Now(),
		}}
	}
	st.mu.Unlock()

	if cleared > 0 {
		l.logger.Info("cleared pending calls", "provider", id, "count", cleared)
	}
}

// QueueStatus reports the provider's queue depth, in-flight count, trailing
// window count, and an estimate of the wait until the next admissible slot.
func (l *Limiter) QueueStatus(id domain.ProviderID) Status {
	st, err := l.state(id)
	if err != nil {
		return Status{}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	st.pruneLocked(now)

	var wait time.Duration
	if len(st.timestamps) >= st.limit.RequestsPerWindow && len(st.timestamps) > 0 {
		wait = st.timestamps[0].Add(st.limit.Window).Sub(now)
		if wait < 0 {
			wait = 0
		}
	}

	return Status{
		QueueDepth:    len(st.queue),
		InFlight:      st.inflight,
		WindowCount:   len(st.timestamps),
		EstimatedWait: wait,
	}
}

// Healthy reports false when any provider's queue depth signals sustained
// overload.
func (l *Limiter) Healthy() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, st := range l.providers {
		st.mu.Lock()
		depth := len(st.queue)
		st.mu.Unlock()
		if depth > maxHealthyDepth {
			return false
		}
	}
	return true
}

// Shutdown clears every queue and stops all drain goroutines.
func (l *Limiter) Shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	ids := make([]domain.ProviderID, 0, len(l.providers))
	for id := range l.providers {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	for _, id := range ids {
		l.ClearQueue(id)
	}

	l.mu.RLock()
	for _, st := range l.providers {
		close(st.done)
	}
	l.mu.RUnlock()

	l.wg.Wait()
}

func (l *Limiter) state(id domain.ProviderID) (*providerState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st, ok := l.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", id)
	}
	return st, nil
}

// finish releases an in-flight slot and nudges the drain loop.
func (l *Limiter) finish(st *providerState) {
	st.mu.Lock()
	st.inflight--
	st.mu.Unlock()
	st.signal()
}

// drain is the single per-provider loop that pops the highest-priority task
// whenever admission allows. It paces admissions with a fixed spacing and,
// when the window is full, sleeps until the oldest in-window timestamp falls
// out.
func (l *Limiter) drain(id domain.ProviderID, st *providerState) {
	defer l.wg.Done()

	for {
		select {
		case <-st.done:
			return
		case <-st.wake:
		}

		for {
			st.mu.Lock()
			now := time.Now()
			st.pruneLocked(now)

			if len(st.queue) == 0 {
				st.mu.Unlock()
				break
			}
			if st.inflight >= st.limit.MaxConcurrent {
				// finish() wakes us when a slot frees.
				st.mu.Unlock()
				break
			}
			if len(st.timestamps) >= st.limit.RequestsPerWindow {
				wait := st.timestamps[0].Add(st.limit.Window).Sub(now)
				st.mu.Unlock()
				if wait <= 0 {
					continue
				}
				select {
				case <-st.done:
					return
				case <-time.After(wait):
					continue
				}
			}

			t := st.queue.pop()
			if t == nil {
				st.mu.Unlock()
				break
			}
			if t.cancelled.Load() {
				st.mu.Unlock()
				continue
			}

			st.inflight++
			st.timestamps = append(st.timestamps, now)
			st.mu.Unlock()

			go func(t *task) {
				value, err := t.fn(t.ctx)
				t.result <- taskResult{value: value, err: err}
				l.finish(st)
			}(t)

			select {
			case <-st.done:
				return
			case <-time.After(callSpacing):
			}
		}
	}
}

func (st *providerState) signal() {
	select {
	case st.wake <- struct{}{}:
	default:
	}
}

// admissibleLocked applies the admission rule: in-flight below the
// concurrency cap and trailing-window count below the per-window budget.
// Queued work always drains first so late arrivals cannot jump the queue.
func (st *providerState) admissibleLocked(now time.Time) bool {
	st.pruneLocked(now)
	if len(st.queue) > 0 {
		return false
	}
	return st.inflight < st.limit.MaxConcurrent &&
		len(st.timestamps) < st.limit.RequestsPerWindow
}

// pruneLocked drops timestamps older than the trailing window.
func (st *providerState) pruneLocked(now time.Time) {
	cutoff := now.Add(-st.limit.Window)
	i := 0
	for i < len(st.timestamps) && !st.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		st.timestamps = append(st.timestamps[:0], st.timestamps[i:]...)
	}
}
