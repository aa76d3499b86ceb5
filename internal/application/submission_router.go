package application

import (
	"context"
	"fmt"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SubmissionHandler processes a submission for one integration
type SubmissionHandler interface {
	// CanHandle reports whether this handler serves the integration the settings belong to
	CanHandle(settings *domain.IntegrationSettings) bool
	Handle(ctx context.Context, submission *domain.SubmissionRecord, settings *domain.IntegrationSettings) (*domain.DispatchResult, error)
}

// SubmissionRouter fans a submissionReceived event out to every enabled integration of the form.
// Handler failures are logged and never fail ingestion.
type SubmissionRouter struct {
	handlers []SubmissionHandler
	settings ports.SettingsRepository
	logger   zerolog.Logger
}

// NewSubmissionRouter creates a new submission router
func NewSubmissionRouter(settings ports.SettingsRepository, logger zerolog.Logger) *SubmissionRouter {
	return &SubmissionRouter{
		settings: settings,
		logger:   logger,
	}
}

// RegisterHandler adds a handler
func (r *SubmissionRouter) RegisterHandler(handler SubmissionHandler) {
	r.handlers = append(r.handlers, handler)
}

// Route dispatches the submission to every enabled integration.
// The error is only returned when the form's settings cannot be loaded.
func (r *SubmissionRouter) Route(ctx context.Context, submission *domain.SubmissionRecord) ([]*domain.DispatchResult, error) {
	if submission.ID == "" {
		submission.ID = uuid.New().String()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now()
	}

	all, err := r.settings.ListByForm(ctx, submission.FormID)
	if err != nil {
		return nil, fmt.Errorf("failed to list form settings: %w", err)
	}

	type job struct {
		handler  SubmissionHandler
		settings *domain.IntegrationSettings
	}
	var jobs []job
	for _, settings := range all {
		if !settings.Enabled {
			continue
		}
		for _, h := range r.handlers {
			if h.CanHandle(settings) {
				jobs = append(jobs, job{handler: h, settings: settings})
			}
		}
	}

	if len(jobs) == 0 {
		r.logger.Debug().Str("formId", submission.FormID).Msg("No enabled integrations for form")
		return nil, nil
	}

	results := make([]*domain.DispatchResult, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			result, err := j.handler.Handle(ctx, submission, j.settings)
			if err != nil {
				r.logger.Error().
					Err(err).
					Str("formId", submission.FormID).
					Str("submissionId", submission.ID).
					Str("integration", j.settings.IntegrationID).
					Msg("Submission handler failed")
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*domain.DispatchResult, 0, len(results))
	for _, result := range results {
		if result != nil {
			out = append(out, result)
		}
	}

	r.logger.Info().
		Str("formId", submission.FormID).
		Str("submissionId", submission.ID).
		Int("integrations", len(jobs)).
		Msg("Submission routed")
	return out, nil
}
