package api

import (
	"crypto/sha256"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"github.com/healthdesk/client-registry/internal/api/handlers"
	"github.com/healthdesk/client-registry/internal/auth"
	"github.com/healthdesk/client-registry/internal/config"
	"github.com/healthdesk/client-registry/internal/database"
	"github.com/healthdesk/client-registry/internal/logger"
	"github.com/healthdesk/client-registry/internal/metrics"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Deps holds everything the router needs to build its handlers.
type Deps struct {
	Config      *config.Config
	DB          *sql.DB
	Sessions    *auth.SessionManager
	Users       services.UserServiceProvider
	Clients     services.ClientServiceProvider
	Programs    services.ProgramServiceProvider
	Enrollments services.EnrollmentServiceProvider
	Events      services.EventServiceProvider
	Dashboard   services.DashboardServiceProvider
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	render := handlers.NewRenderer(d.Sessions.Flashes())
	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions, render)
	dashboardHandler := handlers.NewDashboardHandler(d.Dashboard, d.Events, render)
	programHandler := handlers.NewProgramHandler(d.Programs, render)
	clientHandler := handlers.NewClientHandler(d.Clients, render)
	enrollmentHandler := handlers.NewEnrollmentHandler(d.Enrollments, d.Clients, d.Programs, render)
	apiHandler := handlers.NewAPIHandler(d.Clients)
	healthHandler := handlers.NewHealthHandler(d.DB)

	r.Get("/healthz", healthHandler.Check)
	r.Handle("/metrics", promhttp.Handler())

	// JSON API, authenticated by API key
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.Config.Web.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", auth.APIKeyHeader},
			MaxAge:         300,
		}))
		r.Use(database.ConnMiddleware(d.DB))
		r.Use(auth.RequireAPIKey(d.Users))

		r.Get("/clients", apiHandler.ListClients)
		r.Get("/clients/{id}", apiHandler.GetClient)
	})

	// Web pages
	r.Group(func(r chi.Router) {
		if d.Config.Web.CSRFEnabled {
			r.Use(csrfProtect(d.Config))
		}
		r.Use(database.ConnMiddleware(d.DB))

		r.Get("/", authHandler.Index)
		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(d.Sessions.RequireSession)

			r.Get("/dashboard", dashboardHandler.Show)

			r.Route("/programs", func(r chi.Router) {
				r.Get("/", programHandler.List)
				r.Get("/add", programHandler.NewForm)
				r.Post("/add", programHandler.Create)
				r.Get("/{id}/edit", programHandler.EditForm)
				r.Post("/{id}/edit", programHandler.Update)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", clientHandler.List)
				r.Get("/add", clientHandler.NewForm)
				r.Post("/add", clientHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", clientHandler.Show)
					r.Get("/edit", clientHandler.EditForm)
					r.Post("/edit", clientHandler.Update)
					r.Get("/enroll", enrollmentHandler.NewForm)
					r.Post("/enroll", enrollmentHandler.Create)
				})
			})

			r.Post("/enrollments/{id}/update", enrollmentHandler.UpdateStatus)
		})
	})

	return r
}

// csrfProtect guards every web form. The key is derived from the session
// secret so that tokens survive restarts.
func csrfProtect(cfg *config.Config) func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte("csrf:" + cfg.Session.Secret))
	protect := csrf.Protect(key[:],
		csrf.Secure(cfg.IsProduction()),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warn().Err(csrf.FailureReason(r)).Str("path", r.URL.Path).Msg("Rejected request with invalid CSRF token")
			http.Error(w, "Forbidden - invalid or missing CSRF token", http.StatusForbidden)
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			h.ServeHTTP(w, r)
		})
	}
}
