package application

import (
	"context"
	"fmt"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/rs/zerolog"
)

// MappingService is the field mapping store: per-form mappings and per-form integration settings
type MappingService struct {
	mappings   ports.MappingRepository
	settings   ports.SettingsRepository
	schema     *SchemaService
	reconciler *Reconciler
	logger     zerolog.Logger
}

// NewMappingService creates a new mapping service
func NewMappingService(
	mappings ports.MappingRepository,
	settings ports.SettingsRepository,
	schema *SchemaService,
	reconciler *Reconciler,
	logger zerolog.Logger,
) *MappingService {
	return &MappingService{
		mappings:   mappings,
		settings:   settings,
		schema:     schema,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Get returns the saved mapping, or an empty one when nothing was saved
func (s *MappingService) Get(ctx context.Context, formID, integrationID, objectType string) (*domain.FieldMapping, error) {
	mapping, err := s.mappings.Get(ctx, formID, integrationID, objectType)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	if mapping == nil {
		return domain.NewFieldMapping(formID, integrationID, objectType), nil
	}
	return mapping, nil
}

// Save validates the mapping against the current remote schema and persists it.
// Validation is all-or-nothing: a single bad entry rejects the whole save.
func (s *MappingService) Save(ctx context.Context, mapping *domain.FieldMapping) error {
	props, err := s.schema.FetchProperties(ctx, mapping.IntegrationID, mapping.ObjectType)
	if err != nil {
		return fmt.Errorf("failed to load remote schema: %w", err)
	}
	return s.SaveWithSchema(ctx, mapping, props)
}

// SaveWithSchema validates against an already fetched schema and persists the mapping
func (s *MappingService) SaveWithSchema(ctx context.Context, mapping *domain.FieldMapping, props []domain.RemoteProperty) error {
	if err := mapping.Validate(props); err != nil {
		s.logger.Warn().Err(err).
			Str("formId", mapping.FormID).
			Str("integration", mapping.IntegrationID).
			Str("objectType", mapping.ObjectType).
			Msg("Rejected invalid field mapping")
		return err
	}

	toSave := mapping.Clone()
	toSave.UpdatedAt = time.Now()
	if err := s.mappings.Save(ctx, toSave); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	if dups := mapping.DuplicateTargets(); len(dups) > 0 {
		s.logger.Warn().Strs("properties", dups).Str("formId", mapping.FormID).Msg("Several fields target the same property")
	}
	s.logger.Info().
		Str("formId", mapping.FormID).
		Str("integration", mapping.IntegrationID).
		Str("objectType", mapping.ObjectType).
		Int("entries", mapping.Len()).
		Msg("Field mapping saved")
	return nil
}

// ApplyEdits applies user edits to the saved mapping and saves the result
func (s *MappingService) ApplyEdits(ctx context.Context, formID, integrationID, objectType string, fields []domain.FormField, edits []domain.FieldEdit) (*domain.FieldMapping, error) {
	current, err := s.Get(ctx, formID, integrationID, objectType)
	if err != nil {
		return nil, err
	}
	updated := s.reconciler.ApplyEdits(current, fields, edits)
	if err := s.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Clear removes a mapping. This is only ever an explicit user action.
func (s *MappingService) Clear(ctx context.Context, formID, integrationID, objectType string) error {
	if err := s.mappings.Delete(ctx, formID, integrationID, objectType); err != nil {
		return fmt.Errorf("failed to clear mapping: %w", err)
	}
	s.logger.Info().Str("formId", formID).Str("integration", integrationID).Str("objectType", objectType).Msg("Field mapping cleared")
	return nil
}

// MappingSurface is what the UI renders: the proposed mapping, the schema and any warnings
type MappingSurface struct {
	Mapping          *domain.FieldMapping    `json:"mapping"`
	Properties       []domain.RemoteProperty `json:"properties"`
	DuplicateTargets []string                `json:"duplicate_targets,omitempty"`
	AutoMapped       bool                    `json:"auto_mapped"`
}

// Reconcile fetches a fresh schema and merges it with the saved mapping for the given fields.
// The result is a proposal; nothing is persisted.
func (s *MappingService) Reconcile(ctx context.Context, formID, integrationID, objectType string, fields []domain.FormField) (*MappingSurface, error) {
	props, err := s.schema.Refresh(ctx, integrationID, objectType)
	if err != nil {
		return nil, err
	}
	saved, err := s.Get(ctx, formID, integrationID, objectType)
	if err != nil {
		return nil, err
	}

	proposed := s.reconciler.Reconcile(fields, props, saved)
	proposed.FormID, proposed.IntegrationID, proposed.ObjectType = formID, integrationID, objectType
	return &MappingSurface{
		Mapping:          proposed,
		Properties:       props,
		DuplicateTargets: proposed.DuplicateTargets(),
		AutoMapped:       saved.Len() == 0,
	}, nil
}

// GetSettings returns the per-form settings, disabled when never configured
func (s *MappingService) GetSettings(ctx context.Context, formID, integrationID string) (*domain.IntegrationSettings, error) {
	settings, err := s.settings.Get(ctx, formID, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil {
		return &domain.IntegrationSettings{FormID: formID, IntegrationID: integrationID}, nil
	}
	return settings, nil
}

// SaveSettings validates and stores per-form settings
func (s *MappingService) SaveSettings(ctx context.Context, settings *domain.IntegrationSettings) error {
	if err := settings.Options.Validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now()
	if err := s.settings.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Info().
		Str("formId", settings.FormID).
		Str("integration", settings.IntegrationID).
		Bool("enabled", settings.Enabled).
		Msg("Integration settings saved")
	return nil
}
