package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/healthdesk/client-registry/internal/api/flash"
	"github.com/healthdesk/client-registry/internal/auth"
	"github.com/healthdesk/client-registry/internal/metrics"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/rs/zerolog/log"
)

// Messages shown on the login page.
const (
	msgInvalidLogin = "Invalid username or password."
	msgCorruptLogin = "Your account cannot be signed in right now. Please contact an administrator."
	msgLoginFailed  = "Login failed. Please try again."
)

// AuthHandler handles staff login and logout.
type AuthHandler struct {
	service  services.UserServiceProvider
	sessions *auth.SessionManager
	render   *Renderer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.UserServiceProvider, sessions *auth.SessionManager, render *Renderer) *AuthHandler {
	return &AuthHandler{service: service, sessions: sessions, render: render}
}

type loginForm struct {
	Username string
}

// Index sends signed-in users to the dashboard and everyone else to the login page.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Identify(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// LoginForm shows the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Identify(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render.Page(w, r, "login", "Log in", loginForm{})
}

// Login verifies the submitted credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	form := loginForm{Username: username}

	user, err := h.service.Authenticate(r.Context(), username, password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidCredentials):
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		log.Warn().Str("username", username).Str("remote_addr", r.RemoteAddr).Msg("Failed login attempt")
		h.render.PageWithError(w, r, "login", "Log in", msgInvalidLogin, form)
		return
	case errors.Is(err, services.ErrCorruptCredentialState):
		metrics.LoginsTotal.WithLabelValues("corrupt").Inc()
		h.render.PageWithError(w, r, "login", "Log in", msgCorruptLogin, form)
		return
	default:
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("username", username).Msg("Failed to authenticate user")
		h.render.PageWithError(w, r, "login", "Log in", msgLoginFailed, form)
		return
	}

	if err := h.sessions.Issue(w, user); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue session")
		serverError(w)
		return
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User logged in")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	h.render.Redirect(w, r, flash.Success, "You have been logged out.", "/login")
}
