package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/healthdesk/client-registry/internal/api/flash"
	"github.com/healthdesk/client-registry/internal/auth"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"login", "dashboard",
	"programs", "program_form",
	"clients", "client_form", "client_view", "enroll",
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages   map[string]*template.Template
	flashes *flash.Store
}

// NewRenderer parses every page template. It panics if a template is broken.
func NewRenderer(flashes *flash.Store) *Renderer {
	layout := template.Must(template.ParseFS(templateFS, "templates/layout.html"))
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t := template.Must(layout.Clone())
		pages[name] = template.Must(t.ParseFS(templateFS, "templates/"+name+".html"))
	}
	return &Renderer{pages: pages, flashes: flashes}
}

type view struct {
	Title     string
	Flash     *flash.Message
	CSRFField template.HTML
	User      *auth.Identity
	Data      any
}

// Page renders a page, showing the pending flash message if there is one.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	rd.render(w, r, name, title, rd.flashes.Pop(w, r), data)
}

// PageWithError renders a page with msg shown as an error notice, used when
// a submitted form is redisplayed.
func (rd *Renderer) PageWithError(w http.ResponseWriter, r *http.Request, name, title, msg string, data any) {
	rd.flashes.Pop(w, r)
	rd.render(w, r, name, title, &flash.Message{Kind: flash.Error, Text: msg}, data)
}

func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, name, title string, notice *flash.Message, data any) {
	t, ok := rd.pages[name]
	if !ok {
		log.Error().Str("template", name).Msg("Unknown page template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	v := view{Title: title, Flash: notice, CSRFField: csrf.TemplateField(r), Data: data}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		v.User = &id
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// Redirect sets a flash message and redirects after a form submission.
func (rd *Renderer) Redirect(w http.ResponseWriter, r *http.Request, kind, msg, to string) {
	rd.flashes.Set(w, kind, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// idParam parses a numeric route parameter. Anything that is not a positive
// integer is reported as absent.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isUserError(err error) bool {
	return errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrConflict)
}

func serverError(w http.ResponseWriter) {
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
