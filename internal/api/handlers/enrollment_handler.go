package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/healthdesk/client-registry/internal/api/flash"
	"github.com/healthdesk/client-registry/internal/models"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/rs/zerolog/log"
)

// EnrollmentHandler handles enrolling clients and updating enrollment status.
type EnrollmentHandler struct {
	service  services.EnrollmentServiceProvider
	clients  services.ClientServiceProvider
	programs services.ProgramServiceProvider
	render   *Renderer
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(service services.EnrollmentServiceProvider, clients services.ClientServiceProvider, programs services.ProgramServiceProvider, render *Renderer) *EnrollmentHandler {
	return &EnrollmentHandler{service: service, clients: clients, programs: programs, render: render}
}

type enrollFormView struct {
	Client   models.Client
	Programs []models.Program
	Input    services.EnrollmentInput
}

func clientPath(id int64) string {
	return fmt.Sprintf("/clients/%d", id)
}

// NewForm renders the enrollment form for a client.
func (h *EnrollmentHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	view, ok := h.formView(w, r)
	if !ok {
		return
	}
	view.Input.EnrollmentDate = time.Now().Format("2006-01-02")
	h.render.Page(w, r, "enroll", "Enroll client", view)
}

// Create enrolls the client in the selected program.
func (h *EnrollmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	view, ok := h.formView(w, r)
	if !ok {
		return
	}

	// An unparsable program id is treated as no selection.
	programID, _ := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("program_id")), 10, 64)
	view.Input = services.EnrollmentInput{
		ProgramID:      programID,
		EnrollmentDate: r.PostFormValue("enrollment_date"),
	}

	_, err := h.service.Enroll(r.Context(), view.Client.ID, view.Input)
	switch {
	case err == nil:
		h.render.Redirect(w, r, flash.Success, "Client enrolled successfully!", clientPath(view.Client.ID))
	case errors.Is(err, services.ErrNotFound):
		h.render.Redirect(w, r, flash.Error, "Client not found", "/clients")
	case isUserError(err):
		h.render.PageWithError(w, r, "enroll", "Enroll client", err.Error(), view)
	default:
		log.Error().Err(err).Int64("client_id", view.Client.ID).Int64("program_id", programID).Msg("Failed to enroll client")
		serverError(w)
	}
}

// formView loads the client and program list, answering the request itself
// when it cannot.
func (h *EnrollmentHandler) formView(w http.ResponseWriter, r *http.Request) (enrollFormView, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Redirect(w, r, flash.Error, "Client not found", "/clients")
		return enrollFormView{}, false
	}
	client, err := h.clients.GetClient(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.render.Redirect(w, r, flash.Error, "Client not found", "/clients")
			return enrollFormView{}, false
		}
		log.Error().Err(err).Int64("client_id", id).Msg("Failed to load client")
		serverError(w)
		return enrollFormView{}, false
	}
	programs, err := h.programs.ListPrograms(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list programs")
		serverError(w)
		return enrollFormView{}, false
	}
	return enrollFormView{Client: client, Programs: programs}, true
}

// UpdateStatus changes the status of an enrollment.
func (h *EnrollmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Redirect(w, r, flash.Error, "Enrollment not found", "/clients")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	enrollment, err := h.service.GetEnrollment(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.render.Redirect(w, r, flash.Error, "Enrollment not found", "/clients")
			return
		}
		log.Error().Err(err).Int64("enrollment_id", id).Msg("Failed to load enrollment")
		serverError(w)
		return
	}

	_, err = h.service.UpdateStatus(r.Context(), id, r.PostFormValue("status"))
	switch {
	case err == nil:
		h.render.Redirect(w, r, flash.Success, "Enrollment updated successfully!", clientPath(enrollment.ClientID))
	case errors.Is(err, services.ErrNotFound):
		h.render.Redirect(w, r, flash.Error, "Enrollment not found", "/clients")
	case isUserError(err):
		h.render.Redirect(w, r, flash.Error, err.Error(), clientPath(enrollment.ClientID))
	default:
		log.Error().Err(err).Int64("enrollment_id", id).Msg("Failed to update enrollment")
		serverError(w)
	}
}
