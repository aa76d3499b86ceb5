package submission_handlers

import (
	"context"

	"archie-core-forms-layer/internal/domain"
)

// Dispatcher is the part of application.Dispatcher the handlers use
type Dispatcher interface {
	DispatchWithSettings(ctx context.Context, submission *domain.SubmissionRecord, settings *domain.IntegrationSettings) (*domain.DispatchResult, error)
}

// withOptions returns a copy of settings carrying opts
func withOptions(settings *domain.IntegrationSettings, opts domain.DispatchOptions) *domain.IntegrationSettings {
	copied := *settings
	copied.Options = opts
	return &copied
}
