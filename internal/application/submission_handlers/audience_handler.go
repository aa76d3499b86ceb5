package submission_handlers

import (
	"context"
	"fmt"

	"archie-core-forms-layer/internal/domain"

	"github.com/rs/zerolog"
)

// AudienceHandler subscribes submitters to a Mailchimp audience.
// Mailchimp has no deals, companies or custom objects; those options are ignored.
type AudienceHandler struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewAudienceHandler creates a new Mailchimp submission handler
func NewAudienceHandler(dispatcher Dispatcher, logger zerolog.Logger) *AudienceHandler {
	return &AudienceHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CanHandle returns true for Mailchimp settings
func (h *AudienceHandler) CanHandle(settings *domain.IntegrationSettings) bool {
	return settings.IntegrationID == domain.IntegrationMailchimp
}

// Handle upserts the audience member and applies the configured tag
func (h *AudienceHandler) Handle(ctx context.Context, submission *domain.SubmissionRecord, settings *domain.IntegrationSettings) (*domain.DispatchResult, error) {
	opts := settings.Options
	if opts.CreateDeal || opts.UpdateDeal || opts.AssociateCompany || opts.EnableCustomObjects {
		h.logger.Warn().
			Str("formId", submission.FormID).
			Msg("Ignoring deal, company and custom object options for Mailchimp")
	}

	restricted := domain.DispatchOptions{
		CreateOrUpdateContact: opts.CreateOrUpdateContact,
		EnrollWorkflow:        opts.EnrollWorkflow,
		WorkflowID:            opts.WorkflowID,
	}

	result, err := h.dispatcher.DispatchWithSettings(ctx, submission, withOptions(settings, restricted))
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch to Mailchimp: %w", err)
	}
	return result, nil
}
