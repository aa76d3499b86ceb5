package api

import (
	"net/http"

	"archie-core-forms-layer/internal/application"
	"archie-core-forms-layer/internal/infrastructure/pubsub"
	"archie-core-forms-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Services groups the application services exposed over HTTP
type Services struct {
	Adapters     *application.AdapterRegistry
	Integrations *application.IntegrationService
	Credentials  *application.CredentialsService
	Connection   *application.ConnectionService
	Schema       *application.SchemaService
	Mappings     *application.MappingService
	Submissions  *application.SubmissionRouter
	Events       *pubsub.DispatchPubSub // optional
	DispatchLog  ports.DispatchLog      // optional
}

// Handler serves the REST API used by the host CMS
type Handler struct {
	adapters     *application.AdapterRegistry
	integrations *application.IntegrationService
	credentials  *application.CredentialsService
	connection   *application.ConnectionService
	schema       *application.SchemaService
	mappings     *application.MappingService
	submissions  *application.SubmissionRouter
	events       *pubsub.DispatchPubSub
	dispatchLog  ports.DispatchLog
	logger       zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(services Services, logger zerolog.Logger) *Handler {
	return &Handler{
		adapters:     services.Adapters,
		integrations: services.Integrations,
		credentials:  services.Credentials,
		connection:   services.Connection,
		schema:       services.Schema,
		mappings:     services.Mappings,
		submissions:  services.Submissions,
		events:       services.Events,
		dispatchLog:  services.DispatchLog,
		logger:       logger,
	}
}

// RegisterRoutes mounts the /api/v1 routes on r
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/integrations", h.listIntegrations)

		r.Route("/integrations/{integration}", func(r chi.Router) {
			r.Use(h.requireIntegration)
			r.Get("/connection", h.testConnection)
			r.Put("/credentials", h.saveCredentials)
			r.Delete("/credentials", h.deleteCredentials)
			r.Get("/object-types", h.listObjectTypes)
			r.Get("/objects/{objectType}/properties", h.listProperties)
		})

		r.Route("/forms/{formId}", func(r chi.Router) {
			r.Get("/integrations", h.listFormIntegrations)
			r.Post("/submissions", h.receiveSubmission)
			r.Get("/dispatches", h.listDispatches)

			r.Route("/integrations/{integration}", func(r chi.Router) {
				r.Use(h.requireIntegration)
				r.Get("/settings", h.getSettings)
				r.Put("/settings", h.saveSettings)
				r.Post("/mappings/{objectType}/reconcile", h.reconcileMapping)
				r.Get("/mappings/{objectType}", h.getMapping)
				r.Put("/mappings/{objectType}", h.saveMapping)
				r.Patch("/mappings/{objectType}", h.editMapping)
				r.Delete("/mappings/{objectType}", h.clearMapping)
			})
		})

		r.Get("/dispatch/events", h.streamDispatchEvents)
	})
}

// requireIntegration rejects unknown integration ids before any handler runs
func (h *Handler) requireIntegration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.adapters.Get(chi.URLParam(r, "integration")); err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
