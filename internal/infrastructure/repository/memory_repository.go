package repository

import (
	"context"
	"sort"
	"sync"

	"archie-core-forms-layer/internal/domain"
)

// MemoryMappingRepository keeps mappings in process memory
type MemoryMappingRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.FieldMapping
}

// NewMemoryMappingRepository creates an empty in-memory mapping repository
func NewMemoryMappingRepository() *MemoryMappingRepository {
	return &MemoryMappingRepository{items: make(map[string]*domain.FieldMapping)}
}

func mappingKey(formID, integrationID, objectType string) string {
	return formID + "\x00" + integrationID + "\x00" + objectType
}

func (r *MemoryMappingRepository) Get(_ context.Context, formID, integrationID, objectType string) (*domain.FieldMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mapping, ok := r.items[mappingKey(formID, integrationID, objectType)]
	if !ok {
		return nil, nil
	}
	return mapping.Clone(), nil
}

func (r *MemoryMappingRepository) Save(_ context.Context, mapping *domain.FieldMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[mappingKey(mapping.FormID, mapping.IntegrationID, mapping.ObjectType)] = mapping.Clone()
	return nil
}

func (r *MemoryMappingRepository) Delete(_ context.Context, formID, integrationID, objectType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, mappingKey(formID, integrationID, objectType))
	return nil
}

func (r *MemoryMappingRepository) ListObjectTypes(_ context.Context, formID, integrationID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := []string{}
	for _, m := range r.items {
		if m.FormID == formID && m.IntegrationID == integrationID {
			types = append(types, m.ObjectType)
		}
	}
	sort.Strings(types)
	return types, nil
}

// MemoryCredentialsRepository keeps credentials in process memory
type MemoryCredentialsRepository struct {
	mu    sync.RWMutex
	items map[string]domain.IntegrationCredentials
}

// NewMemoryCredentialsRepository creates an empty in-memory credentials repository
func NewMemoryCredentialsRepository() *MemoryCredentialsRepository {
	return &MemoryCredentialsRepository{items: make(map[string]domain.IntegrationCredentials)}
}

func (r *MemoryCredentialsRepository) Get(_ context.Context, integrationID string) (*domain.IntegrationCredentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	creds, ok := r.items[integrationID]
	if !ok {
		return nil, nil
	}
	return &creds, nil
}

func (r *MemoryCredentialsRepository) Save(_ context.Context, creds *domain.IntegrationCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[creds.IntegrationID] = *creds
	return nil
}

func (r *MemoryCredentialsRepository) Delete(_ context.Context, integrationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, integrationID)
	return nil
}

// MemorySettingsRepository keeps per-form settings in process memory
type MemorySettingsRepository struct {
	mu    sync.RWMutex
	items map[string]domain.IntegrationSettings
}

// NewMemorySettingsRepository creates an empty in-memory settings repository
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{items: make(map[string]domain.IntegrationSettings)}
}

func (r *MemorySettingsRepository) Get(_ context.Context, formID, integrationID string) (*domain.IntegrationSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	settings, ok := r.items[formID+"\x00"+integrationID]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func (r *MemorySettingsRepository) Save(_ context.Context, settings *domain.IntegrationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[settings.FormID+"\x00"+settings.IntegrationID] = *settings
	return nil
}

func (r *MemorySettingsRepository) ListByForm(_ context.Context, formID string) ([]*domain.IntegrationSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*domain.IntegrationSettings
	for _, s := range r.items {
		if s.FormID == formID {
			settings := s
			all = append(all, &settings)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].IntegrationID < all[j].IntegrationID })
	return all, nil
}

// MemoryDispatchLog keeps the most recent dispatch results in process memory
type MemoryDispatchLog struct {
	mu       sync.RWMutex
	results  []*domain.DispatchResult
	capacity int
}

// NewMemoryDispatchLog creates a dispatch log holding at most capacity results
func NewMemoryDispatchLog(capacity int) *MemoryDispatchLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryDispatchLog{capacity: capacity}
}

func (r *MemoryDispatchLog) OnDispatch(_ context.Context, result *domain.DispatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	if over := len(r.results) - r.capacity; over > 0 {
		r.results = append([]*domain.DispatchResult(nil), r.results[over:]...)
	}
	return nil
}

func (r *MemoryDispatchLog) ListByForm(_ context.Context, formID string, limit int64) ([]*domain.DispatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.DispatchResult
	for i := len(r.results) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if r.results[i].FormID == formID {
			out = append(out, r.results[i])
		}
	}
	return out, nil
}
