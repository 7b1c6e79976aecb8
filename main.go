package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/healthdesk/client-registry/internal/api"
	"github.com/healthdesk/client-registry/internal/auth"
	"github.com/healthdesk/client-registry/internal/config"
	"github.com/healthdesk/client-registry/internal/database"
	"github.com/healthdesk/client-registry/internal/logger"
	"github.com/healthdesk/client-registry/internal/monitoring"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	enrollmentService := services.NewEnrollmentService(db, eventService)
	clientService := services.NewClientService(db, enrollmentService, eventService)
	programService := services.NewProgramService(db, eventService)
	dashboardService := services.NewDashboardService(db)

	if err := seedAdmin(context.Background(), userService, cfg.Seed); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed default admin")
	}

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(eventService, cfg.Events.Retention, cfg.Events.PruneSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure scheduler")
	}
	go scheduler.Run()

	// Set up router
	router := api.NewRouter(api.Deps{
		Config:      cfg,
		DB:          db,
		Sessions:    auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, cfg.IsProduction()),
		Users:       userService,
		Clients:     clientService,
		Programs:    programService,
		Enrollments: enrollmentService,
		Events:      eventService,
		Dashboard:   dashboardService,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

// seedAdmin inserts the default admin account when it does not exist yet.
// Existing accounts are left untouched.
func seedAdmin(ctx context.Context, users services.UserServiceProvider, seed config.SeedConfig) error {
	key := seed.APIKey
	generated := key == ""
	if generated {
		key = services.NewAPIKey()
	}

	created, err := users.EnsureUser(ctx, seed.AdminUsername, seed.AdminPassword, key, true)
	if err != nil {
		return err
	}
	if !created {
		log.Debug().Str("username", seed.AdminUsername).Msg("Default admin already exists")
		return nil
	}

	ev := log.Warn().Str("username", seed.AdminUsername)
	if generated {
		ev = ev.Str("api_key", key)
	}
	ev.Msg("Created default admin account; change its password")
	return nil
}
