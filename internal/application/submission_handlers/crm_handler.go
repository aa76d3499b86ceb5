package submission_handlers

import (
	"context"
	"fmt"

	"archie-core-forms-layer/internal/domain"

	"github.com/rs/zerolog"
)

// CRMHandler sends submissions to HubSpot with every dispatch option available
type CRMHandler struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewCRMHandler creates a new HubSpot submission handler
func NewCRMHandler(dispatcher Dispatcher, logger zerolog.Logger) *CRMHandler {
	return &CRMHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CanHandle returns true for HubSpot settings
func (h *CRMHandler) CanHandle(settings *domain.IntegrationSettings) bool {
	return settings.IntegrationID == domain.IntegrationHubSpot
}

// Handle dispatches a submission to HubSpot
func (h *CRMHandler) Handle(ctx context.Context, submission *domain.SubmissionRecord, settings *domain.IntegrationSettings) (*domain.DispatchResult, error) {
	h.logger.Debug().
		Str("formId", submission.FormID).
		Str("submissionId", submission.ID).
		Bool("contact", settings.Options.CreateOrUpdateContact).
		Bool("deal", settings.Options.CreateDeal || settings.Options.UpdateDeal).
		Bool("workflow", settings.Options.EnrollWorkflow).
		Int("customObjects", len(settings.Options.CustomObjectConfigs)).
		Msg("Processing HubSpot submission")

	result, err := h.dispatcher.DispatchWithSettings(ctx, submission, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch to HubSpot: %w", err)
	}
	return result, nil
}
