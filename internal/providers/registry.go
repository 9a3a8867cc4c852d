package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
)

// Factory crea un adapter. Devuelve error si la configuración no alcanza.
type Factory func() (Adapter, error)

// Registry maneja factories e instancias de adapters.
type Registry struct {
	mu        sync.RWMutex
	factories map[types.ProviderKind]Factory
	cache     map[types.ProviderKind]Adapter
}

// NewRegistry crea un registry vacío.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[types.ProviderKind]Factory),
		cache:     make(map[types.ProviderKind]Adapter),
	}
}

// RegisterFactory registra la factory de un provider. Llamar al arranque.
func (r *Registry) RegisterFactory(kind types.ProviderKind, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
	delete(r.cache, kind)
}

// Get devuelve el adapter del provider, creándolo la primera vez.
func (r *Registry) Get(kind types.ProviderKind) (Adapter, error) {
	r.mu.RLock()
	if a, ok := r.cache[kind]; ok {
		r.mu.RUnlock()
		return a, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if a, ok := r.cache[kind]; ok {
		return a, nil
	}

	factory, ok := r.factories[kind]
	if !ok {
		return nil, Unavailable(kind, fmt.Sprintf("provider not registered: %s", kind), nil)
	}
	a, err := factory()
	if err != nil {
		return nil, Unavailable(kind, "provider is not configured", err)
	}
	r.cache[kind] = a
	return a, nil
}

// Available devuelve los providers registrados, ordenados.
func (r *Registry) Available() []types.ProviderKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ProviderKind, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
