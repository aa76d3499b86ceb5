package application

import (
	"sort"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"
)

// AdapterRegistry resolves integration adapters by id
type AdapterRegistry struct {
	adapters map[string]ports.IntegrationAdapter
}

// NewAdapterRegistry creates a registry from the given adapters
func NewAdapterRegistry(adapters ...ports.IntegrationAdapter) *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[string]ports.IntegrationAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

// Get returns the adapter for an integration
func (r *AdapterRegistry) Get(integrationID string) (ports.IntegrationAdapter, error) {
	adapter, ok := r.adapters[integrationID]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "adapters.get", "unknown integration "+integrationID)
	}
	return adapter, nil
}

// IDs returns the registered integration ids in sorted order
func (r *AdapterRegistry) IDs() []string {
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
