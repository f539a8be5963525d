package circuitbreaker

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry lazily creates one breaker per dependency name, so a retailer
// that is down does not trip fetches for the others.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	newCfg   func(name string) Config
	logger   *zap.Logger
}

// NewRegistry creates a registry. newCfg may be nil to use DefaultConfig.
func NewRegistry(newCfg func(name string) Config, logger *zap.Logger) *Registry {
	if newCfg == nil {
		newCfg = DefaultConfig
	}
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		newCfg:   newCfg,
		logger:   logger,
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	if !ok {
		cb = New(r.newCfg(name), r.logger)
		r.breakers[name] = cb
	}
	return cb
}

// Stats returns a snapshot of every breaker, sorted by name.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	stats := make([]Stats, 0, len(breakers))
	for _, cb := range breakers {
		stats = append(stats, cb.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
