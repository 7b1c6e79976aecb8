package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/healthdesk/client-registry/internal/services"
	"github.com/rs/zerolog/log"
)

// APIHandler serves the read-only JSON client API.
type APIHandler struct {
	service services.ClientServiceProvider
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(service services.ClientServiceProvider) *APIHandler {
	return &APIHandler{service: service}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListClients returns every client.
func (h *APIHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.ListClients(r.Context(), "")
	if err != nil {
		log.Error().Err(err).Msg("Failed to list clients")
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// GetClient returns one client with its enrollments.
func (h *APIHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Client not found")
		return
	}

	detail, err := h.service.GetClientDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Client not found")
			return
		}
		log.Error().Err(err).Int64("client_id", id).Msg("Failed to retrieve client")
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
