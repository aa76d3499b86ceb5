package ports

import (
	"context"

	"archie-core-forms-layer/internal/domain"
)

// MappingRepository persists field mappings keyed by (form, integration, object type).
// Get returns nil, nil when nothing was saved.
type MappingRepository interface {
	Get(ctx context.Context, formID, integrationID, objectType string) (*domain.FieldMapping, error)
	Save(ctx context.Context, mapping *domain.FieldMapping) error
	Delete(ctx context.Context, formID, integrationID, objectType string) error
	ListObjectTypes(ctx context.Context, formID, integrationID string) ([]string, error)
}

// CredentialsProvider supplies decrypted credentials to the engine
type CredentialsProvider interface {
	GetCredentials(ctx context.Context, integrationID string) (*domain.IntegrationCredentials, error)
}

// CredentialsRepository stores credentials as given (already encrypted by the caller).
// Get returns nil, nil when none are stored.
type CredentialsRepository interface {
	Get(ctx context.Context, integrationID string) (*domain.IntegrationCredentials, error)
	Save(ctx context.Context, creds *domain.IntegrationCredentials) error
	Delete(ctx context.Context, integrationID string) error
}

// SettingsRepository persists per-form integration settings.
// Get returns nil, nil when the integration was never configured for the form.
type SettingsRepository interface {
	Get(ctx context.Context, formID, integrationID string) (*domain.IntegrationSettings, error)
	Save(ctx context.Context, settings *domain.IntegrationSettings) error
	ListByForm(ctx context.Context, formID string) ([]*domain.IntegrationSettings, error)
}
