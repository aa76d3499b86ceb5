package submission_handlers

import (
	"context"
	"fmt"

	"archie-core-forms-layer/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerHandler upserts Shopify customers from submissions
type CustomerHandler struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewCustomerHandler creates a new Shopify submission handler
func NewCustomerHandler(dispatcher Dispatcher, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CanHandle returns true for Shopify settings
func (h *CustomerHandler) CanHandle(settings *domain.IntegrationSettings) bool {
	return settings.IntegrationID == domain.IntegrationShopify
}

// Handle upserts the customer; only the contact operation applies to Shopify
func (h *CustomerHandler) Handle(ctx context.Context, submission *domain.SubmissionRecord, settings *domain.IntegrationSettings) (*domain.DispatchResult, error) {
	restricted := domain.DispatchOptions{CreateOrUpdateContact: settings.Options.CreateOrUpdateContact}

	result, err := h.dispatcher.DispatchWithSettings(ctx, submission, withOptions(settings, restricted))
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch to Shopify: %w", err)
	}

	h.logger.Info().
		Str("formId", submission.FormID).
		Str("submissionId", submission.ID).
		Bool("success", result.Success).
		Msg("Processed Shopify customer submission")
	return result, nil
}
