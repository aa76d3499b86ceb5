package api

import (
	"net/http"

	"archie-core-forms-layer/internal/application"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listIntegrations(w http.ResponseWriter, r *http.Request) {
	integrations, err := h.integrations.ListIntegrations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, integrations)
}

func (h *Handler) testConnection(w http.ResponseWriter, r *http.Request) {
	info, err := h.connection.Test(r.Context(), chi.URLParam(r, "integration"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// saveCredentials stores new credentials. With ?verify=1 they are tested before anything is saved.
func (h *Handler) saveCredentials(w http.ResponseWriter, r *http.Request) {
	integrationID := chi.URLParam(r, "integration")

	var input application.SaveCredentialsInput
	if err := decodeJSON(r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("verify") == "1" {
		candidate := input.ToCredentials(integrationID)
		if _, err := h.connection.TestCredentials(r.Context(), integrationID, candidate); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	creds, err := h.credentials.SaveCredentials(r.Context(), integrationID, &input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creds.Masked())
}

func (h *Handler) deleteCredentials(w http.ResponseWriter, r *http.Request) {
	if err := h.credentials.DeleteCredentials(r.Context(), chi.URLParam(r, "integration")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listObjectTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.schema.ListObjectTypes(r.Context(), chi.URLParam(r, "integration"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// listProperties returns the remote schema, bypassing the cache with ?refresh=1
func (h *Handler) listProperties(w http.ResponseWriter, r *http.Request) {
	integrationID := chi.URLParam(r, "integration")
	objectType := chi.URLParam(r, "objectType")

	fetch := h.schema.FetchProperties
	if r.URL.Query().Get("refresh") == "1" {
		fetch = h.schema.Refresh
	}
	props, err := fetch(r.Context(), integrationID, objectType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}
