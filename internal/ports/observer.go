package ports

import (
	"context"
	"time"

	"archie-core-forms-layer/internal/domain"
)

// DispatchObserver is notified after every dispatch has been aggregated
type DispatchObserver interface {
	OnDispatch(ctx context.Context, result *domain.DispatchResult) error
}

// MetricsRecorder records engine-level measurements
type MetricsRecorder interface {
	ObserveSchemaFetch(integrationID, objectType, source string, err error)
	ObserveOperation(integrationID, operation string, success bool, duration time.Duration)
}

// DispatchLog persists dispatch results and lists them per form
type DispatchLog interface {
	DispatchObserver
	ListByForm(ctx context.Context, formID string, limit int64) ([]*domain.DispatchResult, error)
}
