package upstream

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/diligence/internal/core/domain"
)

// Transport performs the actual provider call. Providers supply their own;
// the core stays agnostic to HTTP/SDK details. Timeouts arrive via ctx.
type Transport func(ctx context.Context, endpoint string, params map[string]any) (any, error)

// registry owns the provider configs, their transports, and the fallback
// map. Configs are immutable after registration.
type registry struct {
	mu         sync.RWMutex
	providers  map[domain.ProviderID]domain.ProviderConfig
	transports map[domain.ProviderID]Transport
	fallbacks  map[domain.ProviderID][]domain.ProviderID
}

func newRegistry() *registry {
	return &registry{
		providers:  make(map[domain.ProviderID]domain.ProviderConfig),
		transports: make(map[domain.ProviderID]Transport),
		fallbacks:  make(map[domain.ProviderID][]domain.ProviderID),
	}
}

func (r *registry) register(cfg domain.ProviderConfig, t Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.ID == "" {
		return fmt.Errorf("provider id is required")
	}
	if t == nil {
		return fmt.Errorf("provider %s: transport is required", cfg.ID)
	}
	if _, exists := r.providers[cfg.ID]; exists {
		return fmt.Errorf("provider %s already registered", cfg.ID)
	}

	r.providers[cfg.ID] = cfg
	r.transports[cfg.ID] = t
	if len(cfg.Fallbacks) > 0 {
		r.fallbacks[cfg.ID] = append([]domain.ProviderID(nil), cfg.Fallbacks...)
	}
	return nil
}

func (r *registry) get(id domain.ProviderID) (domain.ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.providers[id]
	return cfg, ok
}

func (r *registry) transport(id domain.ProviderID) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[id]
	return t, ok
}

func (r *registry) setFallbacks(id domain.ProviderID, fallbacks []domain.ProviderID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[id] = append([]domain.ProviderID(nil), fallbacks...)
}

func (r *registry) getFallbacks(id domain.ProviderID) []domain.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ProviderID(nil), r.fallbacks[id]...)
}

func (r *registry) ids() []domain.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]domain.ProviderID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	return ids
}
