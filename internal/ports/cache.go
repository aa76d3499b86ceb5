package ports

import (
	"context"
	"time"

	"archie-core-forms-layer/internal/domain"
)

// SchemaCache stores remote property lists by integration and object type
type SchemaCache interface {
	// Get returns ok=false on a miss
	Get(ctx context.Context, integrationID, objectType string) (props []domain.RemoteProperty, ok bool, err error)
	Set(ctx context.Context, integrationID, objectType string, props []domain.RemoteProperty, ttl time.Duration) error
	// Invalidate drops every entry for an integration
	Invalidate(ctx context.Context, integrationID string) error
}
