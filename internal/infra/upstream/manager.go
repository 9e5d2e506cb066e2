// Package upstream composes the cache, rate limiter, and retry engine into
// the single request/response contract callers use to reach third-party data
// providers. Every request ends in an envelope; no failure escapes as a bare
// error.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/diligence/internal/core/domain"
	"github.com/vietddude/diligence/internal/infra/cache"
	"github.com/vietddude/diligence/internal/infra/upstream/ratelimit"
	"github.com/vietddude/diligence/internal/infra/upstream/retry"
	"github.com/vietddude/diligence/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// ProviderStats reports one provider's queue and error state.
type ProviderStats struct {
	Queue      ratelimit.Status         `json:"queue"`
	ErrorRate  int                      `json:"error_rate"`
	ErrorKinds map[domain.ErrorKind]int `json:"error_kinds"`
}

// Stats aggregates the core's counters for operational tooling.
type Stats struct {
	Requests    uint64                              `json:"requests"`
	Successes   uint64                              `json:"successes"`
	Failures    uint64                              `json:"failures"`
	CacheHits   uint64                              `json:"cache_hits"`
	CacheMisses uint64                              `json:"cache_misses"`
	Providers   map[domain.ProviderID]ProviderStats `json:"providers"`
}

// Manager is the request coordinator.
type Manager struct {
	registry *registry
	limiter  *ratelimit.Limiter
	retrier  *retry.Engine
	cache    *cache.Cache
	logger   *slog.Logger

	requests  atomic.Uint64
	successes atomic.Uint64
	failures  atomic.Uint64
}

// NewManager composes the three sub-components.
func NewManager(c *cache.Cache, l *ratelimit.Limiter, r *retry.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: newRegistry(),
		limiter:  l,
		retrier:  r,
		cache:    c,
		logger:   logger,
	}
}

// RegisterProvider registers a provider config with its transport and
// creates the rate limiter state. Configs are read-only afterwards.
func (m *Manager) RegisterProvider(cfg domain.ProviderConfig, t Transport) error {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if cfg.DefaultCacheTTL <= 0 {
		cfg.DefaultCacheTTL = cache.DefaultTTL
	}

	if err := m.registry.register(cfg, t); err != nil {
		return err
	}

	m.limiter.Register(cfg.ID, ratelimit.Limit{
		RequestsPerWindow: cfg.RequestsPerWindow,
		Window:            cfg.Window,
		MaxConcurrent:     cfg.MaxConcurrent,
	})

	m.logger.Info("registered provider",
		"provider", cfg.ID,
		"limit", cfg.RequestsPerWindow,
		"window", cfg.Window,
		"fallbacks", cfg.Fallbacks)
	return nil
}

// RegisterFallback replaces the ordered fallback list for a provider.
func (m *Manager) RegisterFallback(id domain.ProviderID, fallbacks []domain.ProviderID) {
	m.registry.setFallbacks(id, fallbacks)
}

// Execute runs a request through cache, rate limiting, and retries, walking
// the provider's fallback chain when the primary is exhausted. It always
// returns an envelope; Success=false carries the classified error of the
// last attempted provider.
func (m *Manager) Execute(ctx context.Context, req domain.Request) domain.Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	m.requests.Add(1)
	start := time.Now()

	chain := []domain.ProviderID{req.Provider}
	if !req.DisallowFallback {
		chain = append(chain, m.registry.getFallbacks(req.Provider)...)
	}

	var lastErr *domain.Error
	lastID := req.Provider

	for i, id := range chain {
		if i > 0 {
			metrics.FallbacksTotal.WithLabelValues(string(chain[i-1]), string(id)).Inc()
			m.logger.Info("falling back to secondary provider",
				"request_id", req.ID, "from", chain[i-1], "to", id, "endpoint", req.Endpoint)
		}

		resp, derr := m.attempt(ctx, req, id)
		if derr == nil {
			m.successes.Add(1)
			metrics.RequestsTotal.WithLabelValues(string(id), "success").Inc()
			metrics.RequestLatency.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())
			return resp
		}

		lastErr = derr
		lastID = id
	}

	m.failures.Add(1)
	metrics.RequestsTotal.WithLabelValues(string(lastID), "failure").Inc()
	m.logger.Warn("request failed on all providers",
		"request_id", req.ID, "endpoint", req.Endpoint, "kind", lastErr.Kind, "error", lastErr.Message)

	return domain.Response{
		Success:   false,
		Err:       lastErr,
		Cached:    false,
		Timestamp: time.Now(),
		Source:    lastID,
		RequestID: req.ID,
	}
}

// ExecuteBatch fans the requests out concurrently and collects an envelope
// per request in input order. Individual failures never abort the batch.
func (m *Manager) ExecuteBatch(ctx context.Context, reqs []domain.Request) []domain.Response {
	responses := make([]domain.Response, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req domain.Request) {
			defer wg.Done()
			responses[i] = m.Execute(ctx, req)
		}(i, req)
	}
	wg.Wait()

	return responses
}

// attempt runs the request against one provider: cache lookup, rate-limited
// execution with retries, then cache write on success.
func (m *Manager) attempt(ctx context.Context, req domain.Request, id domain.ProviderID) (domain.Response, *domain.Error) {
	cfg, ok := m.registry.get(id)
	if !ok {
		return domain.Response{}, &domain.Error{
			Kind:       domain.ErrInvalidRequest,
			Message:    "provider not registered",
			Provider:   id,
			Retryable:  false,
			OccurredAt: time.Now(),
		}
	}

	key := req.CacheKey
	if key == "" {
		key = cache.Key(id, req.Endpoint, req.Params)
	}

	if !req.SkipCache {
		if raw, hit := m.cache.Get(ctx, key); hit {
			metrics.CacheHitsTotal.Inc()

			var data any
			if err := json.Unmarshal(raw, &data); err == nil {
				return domain.Response{
					Success:   true,
					Data:      data,
					Cached:    true,
					Timestamp: time.Now(),
					Source:    id,
					RequestID: req.ID,
				}, nil
			}
			// Corrupt entry: drop it and fall through to the upstream call.
			m.cache.Delete(ctx, key)
		}
		metrics.CacheMissesTotal.Inc()
	}

	transport, _ := m.registry.transport(id)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = cfg.DefaultTimeout
	}

	value, err := m.limiter.Execute(ctx, id, func(ctx context.Context) (any, error) {
		return m.retrier.Do(ctx, id, func(ctx context.Context) (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return transport(callCtx, req.Endpoint, req.Params)
		})
	}, req.Priority)

	metrics.QueueDepth.WithLabelValues(string(id)).Set(float64(m.limiter.QueueStatus(id).QueueDepth))

	if err != nil {
		var derr *domain.Error
		if !errors.As(err, &derr) {
			derr = m.retrier.Classify(err, id)
		}
		metrics.UpstreamErrorsTotal.WithLabelValues(string(id), string(derr.Kind)).Inc()
		return domain.Response{}, derr
	}

	ttl := req.CacheTTL
	if ttl <= 0 {
		ttl = cfg.DefaultCacheTTL
	}
	if raw, err := json.Marshal(value); err == nil {
		m.cache.Set(ctx, key, raw, ttl)
	} else {
		m.logger.Warn("response not cacheable", "request_id", req.ID, "error", err)
	}

	return domain.Response{
		Success:   true,
		Data:      value,
		Cached:    false,
		Timestamp: time.Now(),
		Source:    id,
		RequestID: req.ID,
	}, nil
}

// Stats aggregates request counters, cache hit/miss counts, and per-provider
// queue and error statistics.
func (m *Manager) Stats() Stats {
	cacheStats := m.cache.Stats()

	providers := make(map[domain.ProviderID]ProviderStats)
	for _, id := range m.registry.ids() {
		providers[id] = ProviderStats{
			Queue:      m.limiter.QueueStatus(id),
			ErrorRate:  m.retrier.ErrorRate(id),
			ErrorKinds: m.retrier.KindCounts(id),
		}
	}

	return Stats{
		Requests:    m.requests.Load(),
		Successes:   m.successes.Load(),
		Failures:    m.failures.Load(),
		CacheHits:   cacheStats.Hits,
		CacheMisses: cacheStats.Misses,
		Providers:   providers,
	}
}

// Healthy reports the AND of the three sub-components' health checks.
func (m *Manager) Healthy(ctx context.Context) bool {
	return m.cache.HealthCheck(ctx) && m.limiter.Healthy() && m.retrier.Healthy()
}

// Shutdown cancels all pending queued calls. In-flight calls run to
// completion or timeout.
func (m *Manager) Shutdown() {
	m.limiter.Shutdown()
}
