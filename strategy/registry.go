package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/davidjurgens/potato-sub003/types"
)

// Built-in strategy names.
const (
	NameRandom         = "random"
	NameFixedOrder     = "fixed_order"
	NameLeastAnnotated = "least_annotated"
	NameMaxDiversity   = "max_diversity"
	NameCategory       = "category"
	NameCluster        = "cluster"
	NameActiveLearning = "active_learning"
	NameLLMConfidence  = "llm_confidence"
)

// Params carries the configuration a factory may need. Factories read only
// the fields relevant to their strategy and ignore the rest.
type Params struct {
	// Seed drives every random draw; each strategy derives its own stream
	// from it, so runs with equal seeds replay identically.
	Seed uint64

	// Mode selects category strategy behavior: "static" or "dynamic".
	Mode string

	// Fallback selects category strategy behavior when no category
	// qualifies: "uncategorized", "random", or "none".
	Fallback string

	// BaseProbability is the dynamic-mode floor so no category is ever
	// fully excluded.
	BaseProbability float64

	// OnFallback is invoked by signal-driven strategies when they degrade
	// to a random pick. May be nil.
	OnFallback types.FallbackObserver
}

// Factory builds a strategy from Params.
type Factory func(p Params) (types.SelectionStrategy, error)

// Registry maps strategy names to factories. The engine resolves the
// configured name once at construction; adding a strategy never touches the
// Coordinator.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry pre-populated with every built-in
// strategy.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NameRandom, func(p Params) (types.SelectionStrategy, error) {
		return NewRandom(p.Seed), nil
	})
	r.Register(NameFixedOrder, func(Params) (types.SelectionStrategy, error) {
		return NewFixedOrder(), nil
	})
	r.Register(NameLeastAnnotated, func(Params) (types.SelectionStrategy, error) {
		return NewLeastAnnotated(), nil
	})
	r.Register(NameMaxDiversity, func(Params) (types.SelectionStrategy, error) {
		return NewMaxDiversity(), nil
	})
	r.Register(NameCategory, func(p Params) (types.SelectionStrategy, error) {
		return NewCategory(p.Seed, p.Mode, p.Fallback, p.BaseProbability)
	})
	r.Register(NameCluster, func(p Params) (types.SelectionStrategy, error) {
		return NewCluster(p.Seed), nil
	})
	r.Register(NameActiveLearning, func(p Params) (types.SelectionStrategy, error) {
		return NewActiveLearning(p.Seed, p.OnFallback), nil
	})
	r.Register(NameLLMConfidence, func(p Params) (types.SelectionStrategy, error) {
		return NewLLMConfidence(p.Seed, p.OnFallback), nil
	})

	return r
}

// Register adds or replaces a factory under the given name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = f
}

// New builds the named strategy.
//
// Returns:
//   - types.SelectionStrategy: constructed strategy
//   - error: types.ErrStrategyNotFound for an unregistered name, or the
//     factory's own validation error
func (r *Registry) New(name string, p Params) (types.SelectionStrategy, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%q: %w", name, types.ErrStrategyNotFound)
	}

	return f(p)
}

// Names returns the registered strategy names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
