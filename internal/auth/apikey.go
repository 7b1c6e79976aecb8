package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/healthdesk/client-registry/internal/metrics"
	"github.com/healthdesk/client-registry/internal/models"
	"github.com/rs/zerolog/log"
)

// APIKeyHeader is the request header carrying the API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuthenticator resolves an API key to its owner.
type APIKeyAuthenticator interface {
	AuthenticateAPIKey(ctx context.Context, key string) (models.User, error)
}

// RequireAPIKey rejects requests without a valid API key before any handler runs.
func RequireAPIKey(users APIKeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := users.AuthenticateAPIKey(r.Context(), r.Header.Get(APIKeyHeader))
			switch {
			case err == nil:
			case errors.Is(err, ErrMissingKey):
				metrics.APIAuthFailuresTotal.WithLabelValues("missing_key").Inc()
				writeError(w, http.StatusUnauthorized, "API key is required")
				return
			case errors.Is(err, ErrInvalidKey):
				metrics.APIAuthFailuresTotal.WithLabelValues("invalid_key").Inc()
				log.Warn().Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Msg("Rejected invalid API key")
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			default:
				metrics.APIAuthFailuresTotal.WithLabelValues("error").Inc()
				log.Error().Err(err).Str("path", r.URL.Path).Msg("API key lookup failed")
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: user.ID, Username: user.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
