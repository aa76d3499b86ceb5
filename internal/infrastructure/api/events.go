package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/infrastructure/pubsub"
)

const sseKeepAlive = 15 * time.Second

// streamDispatchEvents streams dispatch results as server-sent events.
// Query filters: form_id, integration, failures_only=1.
func (h *Handler) streamDispatchEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.writeError(w, r, domain.NewError(domain.KindNotConfigured, "api.events", "dispatch events are disabled"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, domain.NewError(domain.KindUnsupported, "api.events", "streaming is not supported"))
		return
	}

	query := r.URL.Query()
	filter := &pubsub.DispatchEventFilter{
		FormID:        query.Get("form_id"),
		IntegrationID: query.Get("integration"),
		FailuresOnly:  query.Get("failures_only") == "1",
	}
	sub := h.events.Subscribe(r.Context(), filter)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done:
			return
		case result, ok := <-sub.Events:
			if !ok {
				return
			}
			payload, err := json.Marshal(result)
			if err != nil {
				h.logger.Error().Err(err).Str("dispatchId", result.ID).Msg("Failed to marshal dispatch event")
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: dispatch\ndata: %s\n\n", result.ID, payload)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
