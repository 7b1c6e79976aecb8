package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/healthdesk/client-registry/internal/api/flash"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/rs/zerolog/log"
)

// ProgramHandler handles the program pages.
type ProgramHandler struct {
	service services.ProgramServiceProvider
	render  *Renderer
}

// NewProgramHandler creates a new ProgramHandler.
func NewProgramHandler(service services.ProgramServiceProvider, render *Renderer) *ProgramHandler {
	return &ProgramHandler{service: service, render: render}
}

type programFormView struct {
	Action string
	Input  services.ProgramInput
}

func programInput(r *http.Request) services.ProgramInput {
	return services.ProgramInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}
}

// List renders all programs.
func (h *ProgramHandler) List(w http.ResponseWriter, r *http.Request) {
	programs, err := h.service.ListPrograms(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list programs")
		serverError(w)
		return
	}
	h.render.Page(w, r, "programs", "Programs", programs)
}

// NewForm renders an empty program form.
func (h *ProgramHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.render.Page(w, r, "program_form", "Add program", programFormView{Action: "/programs/add"})
}

// Create stores a submitted program.
func (h *ProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in := programInput(r)

	if _, err := h.service.CreateProgram(r.Context(), in); err != nil {
		if isUserError(err) {
			h.render.PageWithError(w, r, "program_form", "Add program", err.Error(),
				programFormView{Action: "/programs/add", Input: in})
			return
		}
		log.Error().Err(err).Str("name", in.Name).Msg("Failed to create program")
		serverError(w)
		return
	}
	h.render.Redirect(w, r, flash.Success, "Program added successfully!", "/programs")
}

// EditForm renders the form for an existing program.
func (h *ProgramHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Redirect(w, r, flash.Error, "Program not found", "/programs")
		return
	}
	program, err := h.service.GetProgram(r.Context(), id)
	if err != nil {
		h.lookupFailed(w, r, id, err)
		return
	}
	h.render.Page(w, r, "program_form", "Edit program", programFormView{
		Action: fmt.Sprintf("/programs/%d/edit", id),
		Input:  services.ProgramInput{Name: program.Name, Description: program.Description},
	})
}

// Update saves changes to an existing program.
func (h *ProgramHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Redirect(w, r, flash.Error, "Program not found", "/programs")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in := programInput(r)

	if _, err := h.service.UpdateProgram(r.Context(), id, in); err != nil {
		if isUserError(err) {
			h.render.PageWithError(w, r, "program_form", "Edit program", err.Error(),
				programFormView{Action: fmt.Sprintf("/programs/%d/edit", id), Input: in})
			return
		}
		h.lookupFailed(w, r, id, err)
		return
	}
	h.render.Redirect(w, r, flash.Success, "Program updated successfully!", "/programs")
}

func (h *ProgramHandler) lookupFailed(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, services.ErrNotFound) {
		h.render.Redirect(w, r, flash.Error, "Program not found", "/programs")
		return
	}
	log.Error().Err(err).Int64("program_id", id).Msg("Failed to load program")
	serverError(w)
}
