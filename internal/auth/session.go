package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/healthdesk/client-registry/internal/api/flash"
	"github.com/healthdesk/client-registry/internal/models"
	"github.com/rs/zerolog/log"
)

// SessionCookieName is the cookie holding the signed session token.
const SessionCookieName = "session"

// Claims defines the session token claims.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies signed session cookies.
type SessionManager struct {
	key     []byte
	ttl     time.Duration
	secure  bool
	flashes *flash.Store
}

// NewSessionManager creates a SessionManager signing with secret.
// Secure cookies should be enabled whenever the app is served over TLS.
func NewSessionManager(secret string, ttl time.Duration, secure bool) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{
		key:     []byte(secret),
		ttl:     ttl,
		secure:  secure,
		flashes: flash.NewStore(secret, secure),
	}
}

// Flashes returns the flash store signed with the session secret.
func (m *SessionManager) Flashes() *flash.Store {
	return m.flashes
}

// Issue establishes a session for user.
func (m *SessionManager) Issue(w http.ResponseWriter, user models.User) error {
	expiresAt := time.Now().Add(m.ttl)
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	return nil
}

// Clear ends the session. Calling it without a session is harmless.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
}

// Identify returns the identity carried by the request's session cookie.
func (m *SessionManager) Identify(r *http.Request) (Identity, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, fmt.Errorf("no session")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid || claims.UserID == 0 {
		return Identity{}, fmt.Errorf("invalid session")
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// RequireSession guards web pages: anonymous requests are redirected to the
// login page with a flash message.
func (m *SessionManager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.Identify(r)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Unauthenticated page request")
			m.flashes.Set(w, flash.Error, "Please log in to access this page")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
