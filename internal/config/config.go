package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DefaultSessionSecret is only acceptable outside production.
const DefaultSessionSecret = "dev-insecure-secret"

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `env:"PORT, default=8080"`
	Env          string `env:"APP_ENV, default=development"`
	LogLevel     string `env:"LOG_LEVEL, default=info"`
	DatabasePath string `env:"DATABASE_PATH, default=./health_system.db"`

	Session SessionConfig
	Web     WebConfig
	Seed    SeedConfig
	Events  EventConfig
}

type SessionConfig struct {
	Secret string        `env:"SESSION_SECRET, default=dev-insecure-secret"`
	TTL    time.Duration `env:"SESSION_TTL, default=12h"`
}

type WebConfig struct {
	CSRFEnabled        bool     `env:"CSRF_ENABLED, default=true"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`
}

// SeedConfig describes the default account inserted at startup when absent.
type SeedConfig struct {
	AdminUsername string `env:"DEFAULT_ADMIN_USERNAME, default=admin"`
	AdminPassword string `env:"DEFAULT_ADMIN_PASSWORD, default=admin123"`
	APIKey        string `env:"DEFAULT_API_KEY"`
}

type EventConfig struct {
	Retention     time.Duration `env:"EVENT_RETENTION, default=720h"`
	PruneSchedule string        `env:"EVENT_PRUNE_SCHEDULE, default=@daily"`
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads configuration from an optional .env file and the environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if cfg.IsProduction() && cfg.Session.Secret == DefaultSessionSecret {
		return nil, errors.New("config: SESSION_SECRET must be set in production")
	}
	return &cfg, nil
}
