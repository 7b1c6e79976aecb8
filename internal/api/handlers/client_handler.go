package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/healthdesk/client-registry/internal/api/flash"
	"github.com/healthdesk/client-registry/internal/models"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/rs/zerolog/log"
)

// ClientHandler handles the client registry pages.
type ClientHandler struct {
	service services.ClientServiceProvider
	render  *Renderer
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(service services.ClientServiceProvider, render *Renderer) *ClientHandler {
	return &ClientHandler{service: service, render: render}
}

type clientListView struct {
	Search  string
	Clients []models.Client
}

type clientFormView struct {
	Action string
	Input  services.ClientInput
}

type clientDetailView struct {
	Client   models.ClientDetail
	Statuses []models.EnrollmentStatus
}

func clientInput(r *http.Request) services.ClientInput {
	return services.ClientInput{
		Name:        r.PostFormValue("name"),
		IDNumber:    r.PostFormValue("id_number"),
		DateOfBirth: r.PostFormValue("date_of_birth"),
		Gender:      r.PostFormValue("gender"),
		Contact:     r.PostFormValue("contact"),
		Address:     r.PostFormValue("address"),
	}
}

// List renders all clients, filtered by the optional search query parameter.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	clients, err := h.service.ListClients(r.Context(), search)
	if err != nil {
		log.Error().Err(err).Str("search", search).Msg("Failed to list clients")
		serverError(w)
		return
	}
	h.render.Page(w, r, "clients", "Clients", clientListView{Search: search, Clients: clients})
}

// NewForm renders an empty intake form.
func (h *ClientHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.render.Page(w, r, "client_form", "Register client", clientFormView{Action: "/clients/add"})
}

// Create registers a submitted client.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in := clientInput(r)

	if _, err := h.service.CreateClient(r.Context(), in); err != nil {
		if isUserError(err) {
			h.render.PageWithError(w, r, "client_form", "Register client", err.Error(),
				clientFormView{Action: "/clients/add", Input: in})
			return
		}
		log.Error().Err(err).Msg("Failed to create client")
		serverError(w)
		return
	}
	h.render.Redirect(w, r, flash.Success, "Client added successfully!", "/clients")
}

// Show renders a client profile with its enrollments.
func (h *ClientHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Redirect(w, r, flash.Error, "Client not found", "/clients")
		return
	}
	detail, err := h.service.GetClientDetail(r.Context(), id)
	if err != nil {
		h.lookupFailed(w, r, id, err)
		return
	}
	h.render.Page(w, r, "client_view", detail.Name, clientDetailView{
		Client:   detail,
		Statuses: models.EnrollmentStatuses,
	})
}

// EditForm renders the form for an existing client.
func (h *ClientHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Redirect(w, r, flash.Error, "Client not found", "/clients")
		return
	}
	c, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		h.lookupFailed(w, r, id, err)
		return
	}
	h.render.Page(w, r, "client_form", "Edit client", clientFormView{
		Action: fmt.Sprintf("/clients/%d/edit", id),
		Input: services.ClientInput{
			Name:        c.Name,
			IDNumber:    c.IDNumber,
			DateOfBirth: c.DateOfBirth,
			Gender:      c.Gender,
			Contact:     c.Contact,
			Address:     c.Address,
		},
	})
}

// Update saves changes to an existing client.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Redirect(w, r, flash.Error, "Client not found", "/clients")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in := clientInput(r)

	if _, err := h.service.UpdateClient(r.Context(), id, in); err != nil {
		if isUserError(err) {
			h.render.PageWithError(w, r, "client_form", "Edit client", err.Error(),
				clientFormView{Action: fmt.Sprintf("/clients/%d/edit", id), Input: in})
			return
		}
		h.lookupFailed(w, r, id, err)
		return
	}
	h.render.Redirect(w, r, flash.Success, "Client updated successfully!", "/clients")
}

func (h *ClientHandler) lookupFailed(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, services.ErrNotFound) {
		h.render.Redirect(w, r, flash.Error, "Client not found", "/clients")
		return
	}
	log.Error().Err(err).Int64("client_id", id).Msg("Failed to load client")
	serverError(w)
}
