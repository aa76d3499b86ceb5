package application

import (
	"context"
	"fmt"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/rs/zerolog"
)

var integrationNames = map[string]string{
	domain.IntegrationHubSpot:   "HubSpot",
	domain.IntegrationMailchimp: "Mailchimp",
	domain.IntegrationShopify:   "Shopify",
}

// IntegrationService lists the registered integrations and their connection state
type IntegrationService struct {
	adapters    *AdapterRegistry
	credentials ports.CredentialsRepository
	mappings    ports.MappingRepository
	settings    ports.SettingsRepository
	logger      zerolog.Logger
}

// NewIntegrationService creates a new integration service
func NewIntegrationService(
	adapters *AdapterRegistry,
	credentials ports.CredentialsRepository,
	mappings ports.MappingRepository,
	settings ports.SettingsRepository,
	logger zerolog.Logger,
) *IntegrationService {
	return &IntegrationService{
		adapters:    adapters,
		credentials: credentials,
		mappings:    mappings,
		settings:    settings,
		logger:      logger,
	}
}

// FormIntegration is an integration as configured for one form
type FormIntegration struct {
	*domain.Integration
	Enabled    bool   `json:"enabled"`
	ObjectType string `json:"object_type,omitempty"`
}

// ListIntegrations returns every registered integration with its global connection state
func (s *IntegrationService) ListIntegrations(ctx context.Context) ([]*domain.Integration, error) {
	ids := s.adapters.IDs()
	out := make([]*domain.Integration, 0, len(ids))
	for _, id := range ids {
		integration, err := s.describe(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, integration)
	}
	return out, nil
}

// ListForForm returns every registered integration with the form's settings and mapped object types
func (s *IntegrationService) ListForForm(ctx context.Context, formID string) ([]*FormIntegration, error) {
	all, err := s.settings.ListByForm(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list form settings: %w", err)
	}
	byIntegration := make(map[string]*domain.IntegrationSettings, len(all))
	for _, settings := range all {
		byIntegration[settings.IntegrationID] = settings
	}

	ids := s.adapters.IDs()
	out := make([]*FormIntegration, 0, len(ids))
	for _, id := range ids {
		integration, err := s.describe(ctx, id)
		if err != nil {
			return nil, err
		}
		types, err := s.mappings.ListObjectTypes(ctx, formID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list mapped object types: %w", err)
		}
		integration.ObjectTypes = types

		entry := &FormIntegration{Integration: integration}
		if settings, ok := byIntegration[id]; ok {
			entry.Enabled = settings.Enabled
			entry.ObjectType = settings.ObjectType
		}
		out = append(out, entry)
	}

	s.logger.Debug().Str("formId", formID).Int("integrations", len(out)).Msg("Listed form integrations")
	return out, nil
}

func (s *IntegrationService) describe(ctx context.Context, id string) (*domain.Integration, error) {
	stored, err := s.credentials.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	name, ok := integrationNames[id]
	if !ok {
		name = id
	}
	integration := &domain.Integration{
		ID:        id,
		Name:      name,
		Connected: stored.IsConnected(),
	}
	if stored != nil && !stored.UpdatedAt.IsZero() {
		updated := stored.UpdatedAt
		integration.UpdatedAt = &updated
	}
	return integration, nil
}
