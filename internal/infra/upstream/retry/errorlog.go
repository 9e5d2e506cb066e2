package retry

import (
	"sync"
	"time"

	"github.com/vietddude/diligence/internal/core/domain"
)

const (
	// logCap bounds the per-provider rolling error log.
	logCap = 100

	// rateWindow is the trailing interval used for error-rate statistics.
	rateWindow = 60 * time.Second

	// maxHealthyRate is the per-window error count past which a provider
	// is considered unhealthy.
	maxHealthyRate = 10
)

// errorLog keeps a bounded rolling log of classified errors per provider for
// statistics. Oldest entries are evicted past the cap.
type errorLog struct {
	mu      sync.RWMutex
	entries map[domain.ProviderID][]*domain.Error
}

func newErrorLog() *errorLog {
	return &errorLog{entries: make(map[domain.ProviderID][]*domain.Error)}
}

func (el *errorLog) record(e *domain.Error) {
	el.mu.Lock()
	defer el.mu.Unlock()

	log := append(el.entries[e.Provider], e)
	if len(log) > logCap {
		log = log[len(log)-logCap:]
	}
	el.entries[e.Provider] = log
}

// rate counts log entries within the trailing rate window.
func (el *errorLog) rate(id domain.ProviderID) int {
	el.mu.RLock()
	defer el.mu.RUnlock()

	cutoff := time.Now().Add(-rateWindow)
	count := 0
	for _, e := range el.entries[id] {
		if e.OccurredAt.After(cutoff) {
			count++
		}
	}
	return count
}

func (el *errorLog) healthy() bool {
	el.mu.RLock()
	ids := make([]domain.ProviderID, 0, len(el.entries))
	for id := range el.entries {
		ids = append(ids, id)
	}
	el.mu.RUnlock()

	for _, id := range ids {
		if el.rate(id) > maxHealthyRate {
			return false
		}
	}
	return true
}

// kindCounts summarizes the retained log by error kind.
func (el *errorLog) kindCounts(id domain.ProviderID) map[domain.ErrorKind]int {
	el.mu.RLock()
	defer el.mu.RUnlock()

	counts := make(map[domain.ErrorKind]int)
	for _, e := range el.entries[id] {
		counts[e.Kind]++
	}
	return counts
}
