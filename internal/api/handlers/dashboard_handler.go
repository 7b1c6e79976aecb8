package handlers

import (
	"net/http"

	"github.com/healthdesk/client-registry/internal/models"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/rs/zerolog/log"
)

const recentEventLimit = 10

// DashboardHandler serves the landing page for signed-in staff.
type DashboardHandler struct {
	service services.DashboardServiceProvider
	events  services.EventServiceProvider
	render  *Renderer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(service services.DashboardServiceProvider, events services.EventServiceProvider, render *Renderer) *DashboardHandler {
	return &DashboardHandler{service: service, events: events, render: render}
}

type dashboardView struct {
	Stats  models.DashboardStats
	Events []models.Event
}

// Show renders record counts and recent activity.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetDashboardStatistics(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve dashboard statistics")
		serverError(w)
		return
	}

	events, err := h.events.GetRecentEvents(r.Context(), recentEventLimit)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to retrieve recent events")
		events = nil
	}

	h.render.Page(w, r, "dashboard", "Dashboard", dashboardView{Stats: stats, Events: events})
}
