package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"archie-core-forms-layer/internal/domain"
)

type errorResponse struct {
	Error      string             `json:"error"`
	Kind       domain.ErrorKind   `json:"kind"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// StatusForKind maps an error kind to the HTTP status returned to the caller
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindNotConfigured:
		return http.StatusConflict
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindRemoteUnavailable:
		return http.StatusBadGateway
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := StatusForKind(kind)

	resp := errorResponse{Error: err.Error(), Kind: kind}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Violations = verr.Violations
	}

	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("kind", string(kind)).
		Int("status", status).
		Msg("Request failed")

	writeJSON(w, status, resp)
}

// decodeJSON reads the request body into dst; malformed input is a validation failure
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.WrapError(domain.KindValidationFailed, "api.decode", err)
	}
	return nil
}
