package application

import (
	"context"
	"sync"
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/stretchr/testify/mock"
)

type mockAdapter struct {
	mock.Mock
	id string
}

func newMockAdapter(id string) *mockAdapter {
	return &mockAdapter{id: id}
}

func (m *mockAdapter) ID() string { return m.id }

func (m *mockAdapter) ContactObjectType() string { return domain.ObjectContacts }

func (m *mockAdapter) FetchObjectTypes(ctx context.Context, creds *domain.IntegrationCredentials) ([]domain.ObjectTypeInfo, error) {
	args := m.Called(ctx, creds)
	types, _ := args.Get(0).([]domain.ObjectTypeInfo)
	return types, args.Error(1)
}

func (m *mockAdapter) FetchProperties(ctx context.Context, creds *domain.IntegrationCredentials, objectType string) ([]domain.RemoteProperty, error) {
	args := m.Called(ctx, creds, objectType)
	props, _ := args.Get(0).([]domain.RemoteProperty)
	return props, args.Error(1)
}

func (m *mockAdapter) SearchByKey(ctx context.Context, creds *domain.IntegrationCredentials, objectType, key, value string) (*domain.RemoteRecord, error) {
	args := m.Called(ctx, creds, objectType, key, value)
	record, _ := args.Get(0).(*domain.RemoteRecord)
	return record, args.Error(1)
}

func (m *mockAdapter) Create(ctx context.Context, creds *domain.IntegrationCredentials, objectType string, properties map[string]domain.Value) (*domain.RemoteRecord, error) {
	args := m.Called(ctx, creds, objectType, properties)
	record, _ := args.Get(0).(*domain.RemoteRecord)
	return record, args.Error(1)
}

func (m *mockAdapter) Update(ctx context.Context, creds *domain.IntegrationCredentials, objectType, id string, properties map[string]domain.Value) (*domain.RemoteRecord, error) {
	args := m.Called(ctx, creds, objectType, id, properties)
	record, _ := args.Get(0).(*domain.RemoteRecord)
	return record, args.Error(1)
}

func (m *mockAdapter) Associate(ctx context.Context, creds *domain.IntegrationCredentials, fromType, fromID, toType, toID string) error {
	args := m.Called(ctx, creds, fromType, fromID, toType, toID)
	return args.Error(0)
}

func (m *mockAdapter) Enroll(ctx context.Context, creds *domain.IntegrationCredentials, workflowID, email string) error {
	args := m.Called(ctx, creds, workflowID, email)
	return args.Error(0)
}

func (m *mockAdapter) TestConnection(ctx context.Context, creds *domain.IntegrationCredentials) (*domain.ConnectionInfo, error) {
	args := m.Called(ctx, creds)
	info, _ := args.Get(0).(*domain.ConnectionInfo)
	return info, args.Error(1)
}

type staticCredentials map[string]*domain.IntegrationCredentials

func (s staticCredentials) GetCredentials(_ context.Context, integrationID string) (*domain.IntegrationCredentials, error) {
	if creds, ok := s[integrationID]; ok {
		return creds, nil
	}
	return &domain.IntegrationCredentials{IntegrationID: integrationID}, nil
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]domain.RemoteProperty
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]domain.RemoteProperty{}}
}

func (c *memoryCache) Get(_ context.Context, integrationID, objectType string) ([]domain.RemoteProperty, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	props, ok := c.entries[integrationID+":"+objectType]
	return props, ok, nil
}

func (c *memoryCache) Set(_ context.Context, integrationID, objectType string, props []domain.RemoteProperty, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[integrationID+":"+objectType] = props
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, integrationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, integrationID)
	for key := range c.entries {
		if len(key) > len(integrationID) && key[:len(integrationID)+1] == integrationID+":" {
			delete(c.entries, key)
		}
	}
	return nil
}

type memoryMappings struct {
	mu    sync.Mutex
	items map[string]*domain.FieldMapping
}

func newMemoryMappings() *memoryMappings {
	return &memoryMappings{items: map[string]*domain.FieldMapping{}}
}

func (r *memoryMappings) Get(_ context.Context, formID, integrationID, objectType string) (*domain.FieldMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[formID+"|"+integrationID+"|"+objectType].Clone(), nil
}

func (r *memoryMappings) Save(_ context.Context, mapping *domain.FieldMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[mapping.FormID+"|"+mapping.IntegrationID+"|"+mapping.ObjectType] = mapping.Clone()
	return nil
}

func (r *memoryMappings) Delete(_ context.Context, formID, integrationID, objectType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, formID+"|"+integrationID+"|"+objectType)
	return nil
}

func (r *memoryMappings) ListObjectTypes(_ context.Context, formID, integrationID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.items {
		if m.FormID == formID && m.IntegrationID == integrationID {
			out = append(out, m.ObjectType)
		}
	}
	return out, nil
}

type memorySettings struct {
	mu    sync.Mutex
	items map[string]*domain.IntegrationSettings
}

func newMemorySettings(settings ...*domain.IntegrationSettings) *memorySettings {
	r := &memorySettings{items: map[string]*domain.IntegrationSettings{}}
	for _, s := range settings {
		r.items[s.FormID+"|"+s.IntegrationID] = s
	}
	return r
}

func (r *memorySettings) Get(_ context.Context, formID, integrationID string) (*domain.IntegrationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[formID+"|"+integrationID], nil
}

func (r *memorySettings) Save(_ context.Context, settings *domain.IntegrationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[settings.FormID+"|"+settings.IntegrationID] = settings
	return nil
}

func (r *memorySettings) ListByForm(_ context.Context, formID string) ([]*domain.IntegrationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.IntegrationSettings
	for _, s := range r.items {
		if s.FormID == formID {
			out = append(out, s)
		}
	}
	return out, nil
}

type memoryCredentialsRepo struct {
	items map[string]*domain.IntegrationCredentials
}

func newMemoryCredentialsRepo() *memoryCredentialsRepo {
	return &memoryCredentialsRepo{items: map[string]*domain.IntegrationCredentials{}}
}

func (r *memoryCredentialsRepo) Get(_ context.Context, integrationID string) (*domain.IntegrationCredentials, error) {
	return r.items[integrationID], nil
}

func (r *memoryCredentialsRepo) Save(_ context.Context, creds *domain.IntegrationCredentials) error {
	r.items[creds.IntegrationID] = creds
	return nil
}

func (r *memoryCredentialsRepo) Delete(_ context.Context, integrationID string) error {
	delete(r.items, integrationID)
	return nil
}

// reverseEncryption is reversible and visibly different from the plaintext
type reverseEncryption struct{}

func (reverseEncryption) Encrypt(plaintext string) (string, error) {
	return "enc:" + reverse(plaintext), nil
}

func (reverseEncryption) Decrypt(ciphertext string) (string, error) {
	return reverse(ciphertext[len("enc:"):]), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

type recordingObserver struct {
	mu      sync.Mutex
	results []*domain.DispatchResult
}

func (o *recordingObserver) OnDispatch(_ context.Context, result *domain.DispatchResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
	return nil
}
