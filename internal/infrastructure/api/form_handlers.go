package api

import (
	"net/http"
	"strconv"
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/go-chi/chi/v5"
)

type settingsRequest struct {
	Enabled    bool                   `json:"enabled"`
	ObjectType string                 `json:"object_type"`
	Options    domain.DispatchOptions `json:"options"`
}

type reconcileRequest struct {
	Fields []domain.FormField `json:"fields"`
}

type saveMappingRequest struct {
	Entries []domain.MappingEntry `json:"entries"`
}

type editMappingRequest struct {
	Fields []domain.FormField `json:"fields"`
	Edits  []domain.FieldEdit `json:"edits"`
}

type submissionRequest struct {
	ID          string                  `json:"id"`
	Values      map[string]domain.Value `json:"values"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

type submissionResponse struct {
	SubmissionID string                   `json:"submission_id"`
	Results      []*domain.DispatchResult `json:"results"`
}

func (h *Handler) listFormIntegrations(w http.ResponseWriter, r *http.Request) {
	integrations, err := h.integrations.ListForForm(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, integrations)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.mappings.GetSettings(r.Context(), chi.URLParam(r, "formId"), chi.URLParam(r, "integration"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	settings := &domain.IntegrationSettings{
		FormID:        chi.URLParam(r, "formId"),
		IntegrationID: chi.URLParam(r, "integration"),
		Enabled:       req.Enabled,
		ObjectType:    req.ObjectType,
		Options:       req.Options,
	}
	if err := h.mappings.SaveSettings(r.Context(), settings); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// reconcileMapping proposes a mapping for the form's current fields without saving it
func (h *Handler) reconcileMapping(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	surface, err := h.mappings.Reconcile(r.Context(),
		chi.URLParam(r, "formId"), chi.URLParam(r, "integration"), chi.URLParam(r, "objectType"), req.Fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, surface)
}

func (h *Handler) getMapping(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.mappings.Get(r.Context(),
		chi.URLParam(r, "formId"), chi.URLParam(r, "integration"), chi.URLParam(r, "objectType"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

// saveMapping replaces the whole mapping; any invalid entry rejects the request
func (h *Handler) saveMapping(w http.ResponseWriter, r *http.Request) {
	var req saveMappingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	mapping := domain.NewFieldMapping(chi.URLParam(r, "formId"), chi.URLParam(r, "integration"), chi.URLParam(r, "objectType"))
	if req.Entries != nil {
		mapping.Entries = req.Entries
	}
	if err := h.mappings.Save(r.Context(), mapping); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

func (h *Handler) editMapping(w http.ResponseWriter, r *http.Request) {
	var req editMappingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	mapping, err := h.mappings.ApplyEdits(r.Context(),
		chi.URLParam(r, "formId"), chi.URLParam(r, "integration"), chi.URLParam(r, "objectType"), req.Fields, req.Edits)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

func (h *Handler) clearMapping(w http.ResponseWriter, r *http.Request) {
	err := h.mappings.Clear(r.Context(), chi.URLParam(r, "formId"), chi.URLParam(r, "integration"), chi.URLParam(r, "objectType"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// receiveSubmission fans a persisted submission out to the form's enabled integrations.
// Remote failures are reported in the results and never fail the request.
func (h *Handler) receiveSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	submission := &domain.SubmissionRecord{
		ID:          req.ID,
		FormID:      chi.URLParam(r, "formId"),
		Values:      req.Values,
		SubmittedAt: req.SubmittedAt,
	}
	results, err := h.submissions.Route(r.Context(), submission)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []*domain.DispatchResult{}
	}
	writeJSON(w, http.StatusAccepted, submissionResponse{SubmissionID: submission.ID, Results: results})
}

func (h *Handler) listDispatches(w http.ResponseWriter, r *http.Request) {
	if h.dispatchLog == nil {
		h.writeError(w, r, domain.NewError(domain.KindNotConfigured, "api.dispatches", "dispatch log is disabled"))
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			h.writeError(w, r, domain.NewError(domain.KindValidationFailed, "api.dispatches", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	results, err := h.dispatchLog.ListByForm(r.Context(), chi.URLParam(r, "formId"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []*domain.DispatchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
