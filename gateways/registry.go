package gateways

import (
	"fmt"
	"sort"
	"sync"
)

// ManualGatewayID marks payments settled outside any provider (cash,
// bank transfer). The dispatcher short-circuits refunds and voids for
// it instead of calling an adapter.
const ManualGatewayID = "manual"

// Registry maps gateway identifiers to concrete adapters. It is built
// once at startup; lookups after that are read-only.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: map[string]Adapter{},
	}
}

// Register adds an adapter under the given identifier, replacing any
// previous registration.
func (r *Registry) Register(id string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[id] = adapter
}

// Resolve returns the adapter for a gateway identifier.
func (r *Registry) Resolve(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown payment gateway %q", id)
	}
	return adapter, nil
}

// Known reports whether an identifier resolves to an adapter or to the
// manual gateway.
func (r *Registry) Known(id string) bool {
	if id == ManualGatewayID {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[id]
	return ok
}

// IDs lists the registered gateway identifiers, manual included.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := []string{ManualGatewayID}
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
