package ports

import (
	"context"

	"archie-core-forms-layer/internal/domain"
)

// IntegrationAdapter is implemented once per vendor; the mapping and dispatch engine depends only on this.
// Capabilities a vendor does not offer return domain.ErrUnsupported.
type IntegrationAdapter interface {
	// ID returns the integration identifier (e.g. "hubspot")
	ID() string

	// ContactObjectType is the object type used for contact upserts
	ContactObjectType() string

	// Schema
	FetchObjectTypes(ctx context.Context, creds *domain.IntegrationCredentials) ([]domain.ObjectTypeInfo, error)
	FetchProperties(ctx context.Context, creds *domain.IntegrationCredentials, objectType string) ([]domain.RemoteProperty, error)

	// Records. SearchByKey returns nil, nil when no record matches.
	SearchByKey(ctx context.Context, creds *domain.IntegrationCredentials, objectType, key, value string) (*domain.RemoteRecord, error)
	Create(ctx context.Context, creds *domain.IntegrationCredentials, objectType string, properties map[string]domain.Value) (*domain.RemoteRecord, error)
	Update(ctx context.Context, creds *domain.IntegrationCredentials, objectType, id string, properties map[string]domain.Value) (*domain.RemoteRecord, error)

	// Associate links two existing records
	Associate(ctx context.Context, creds *domain.IntegrationCredentials, fromType, fromID, toType, toID string) error

	// Enroll adds a contact to an automation workflow
	Enroll(ctx context.Context, creds *domain.IntegrationCredentials, workflowID, email string) error

	// TestConnection performs one side-effect-free call
	TestConnection(ctx context.Context, creds *domain.IntegrationCredentials) (*domain.ConnectionInfo, error)
}
