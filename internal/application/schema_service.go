package application

import (
	"context"
	"fmt"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/rs/zerolog"
)

const defaultSchemaTTL = 5 * time.Minute

// Schema fetch sources reported to metrics
const (
	SchemaSourceCache  = "cache"
	SchemaSourceRemote = "remote"
)

// SchemaService fetches and caches remote property schemas.
// The cache is read-through with no staleness guarantee; callers that need
// a fresh schema before reconciling use Refresh.
type SchemaService struct {
	adapters    *AdapterRegistry
	credentials ports.CredentialsProvider
	cache       ports.SchemaCache
	metrics     ports.MetricsRecorder
	ttl         time.Duration
	logger      zerolog.Logger
}

// NewSchemaService creates a new schema service. cache and metrics may be nil.
func NewSchemaService(
	adapters *AdapterRegistry,
	credentials ports.CredentialsProvider,
	cache ports.SchemaCache,
	metrics ports.MetricsRecorder,
	ttl time.Duration,
	logger zerolog.Logger,
) *SchemaService {
	if ttl <= 0 {
		ttl = defaultSchemaTTL
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SchemaService{
		adapters:    adapters,
		credentials: credentials,
		cache:       cache,
		metrics:     metrics,
		ttl:         ttl,
		logger:      logger,
	}
}

// FetchProperties returns the property list for an object type, from cache when available
func (s *SchemaService) FetchProperties(ctx context.Context, integrationID, objectType string) ([]domain.RemoteProperty, error) {
	if s.cache != nil {
		props, ok, err := s.cache.Get(ctx, integrationID, objectType)
		if err != nil {
			// a broken cache must not block the settings page
			s.logger.Warn().Err(err).Str("integration", integrationID).Str("objectType", objectType).Msg("Schema cache read failed")
		} else if ok {
			s.metrics.ObserveSchemaFetch(integrationID, objectType, SchemaSourceCache, nil)
			return props, nil
		}
	}
	return s.Refresh(ctx, integrationID, objectType)
}

// Refresh fetches the property list from the remote and replaces the cached copy
func (s *SchemaService) Refresh(ctx context.Context, integrationID, objectType string) ([]domain.RemoteProperty, error) {
	adapter, creds, err := s.resolve(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	props, err := s.fetch(ctx, adapter, creds, objectType)
	s.metrics.ObserveSchemaFetch(integrationID, objectType, SchemaSourceRemote, err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("integration", integrationID).
			Str("objectType", objectType).
			Str("kind", string(domain.KindOf(err))).
			Msg("Failed to fetch remote schema")
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, integrationID, objectType, props, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("integration", integrationID).Msg("Schema cache write failed")
		}
	}
	return props, nil
}

// FetchPropertiesWith fetches directly with the given credentials, bypassing the cache
func (s *SchemaService) FetchPropertiesWith(ctx context.Context, integrationID string, creds *domain.IntegrationCredentials, objectType string) ([]domain.RemoteProperty, error) {
	adapter, err := s.adapters.Get(integrationID)
	if err != nil {
		return nil, err
	}
	if !creds.IsConnected() {
		return nil, domain.NewError(domain.KindNotConfigured, "schema.fetchProperties", integrationID+" has no credentials")
	}
	return s.fetch(ctx, adapter, creds, objectType)
}

// ListObjectTypes returns the object types the remote account exposes
func (s *SchemaService) ListObjectTypes(ctx context.Context, integrationID string) ([]domain.ObjectTypeInfo, error) {
	adapter, creds, err := s.resolve(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	return adapter.FetchObjectTypes(ctx, creds)
}

// Invalidate drops every cached schema for an integration
func (s *SchemaService) Invalidate(ctx context.Context, integrationID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, integrationID); err != nil {
		return fmt.Errorf("failed to invalidate schema cache: %w", err)
	}
	return nil
}

func (s *SchemaService) resolve(ctx context.Context, integrationID string) (ports.IntegrationAdapter, *domain.IntegrationCredentials, error) {
	adapter, err := s.adapters.Get(integrationID)
	if err != nil {
		return nil, nil, err
	}
	creds, err := s.credentials.GetCredentials(ctx, integrationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if !creds.IsConnected() {
		return nil, nil, domain.NewError(domain.KindNotConfigured, "schema.resolve", integrationID+" has no credentials")
	}
	return adapter, creds, nil
}

// fetch resolves custom object names before asking for their properties
func (s *SchemaService) fetch(ctx context.Context, adapter ports.IntegrationAdapter, creds *domain.IntegrationCredentials, objectType string) ([]domain.RemoteProperty, error) {
	if !domain.IsStandardObjectType(objectType) {
		types, err := adapter.FetchObjectTypes(ctx, creds)
		if err != nil {
			return nil, err
		}
		found := false
		for _, t := range types {
			if t.Matches(objectType) {
				found = true
				break
			}
		}
		if !found {
			return nil, domain.NewError(domain.KindNotFound, adapter.ID()+".fetchProperties", "unknown object type "+objectType)
		}
	}
	return adapter.FetchProperties(ctx, creds, objectType)
}

type noopMetrics struct{}

func (noopMetrics) ObserveSchemaFetch(string, string, string, error)     {}
func (noopMetrics) ObserveOperation(string, string, bool, time.Duration) {}
