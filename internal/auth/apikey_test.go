package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/healthdesk/client-registry/internal/models"
	"github.com/stretchr/testify/assert"
)

type stubKeys map[string]models.User

func (s stubKeys) AuthenticateAPIKey(_ context.Context, key string) (models.User, error) {
	if key == "" {
		return models.User{}, ErrMissingKey
	}
	if key == "boom" {
		return models.User{}, errors.New("database is locked")
	}
	u, ok := s[key]
	if !ok {
		return models.User{}, ErrInvalidKey
	}
	return u, nil
}

func TestRequireAPIKey(t *testing.T) {
	keys := stubKeys{"good-key": {ID: 1, Username: "admin"}}
	var called bool
	h := RequireAPIKey(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		id, ok := IdentityFrom(r.Context())
		assert.True(t, ok)
		assert.Equal(t, int64(1), id.UserID)
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		key    string
		status int
		body   string
		called bool
	}{
		{"missing", "", http.StatusUnauthorized, `{"error":"API key is required"}`, false},
		{"unknown", "nope", http.StatusUnauthorized, `{"error":"Invalid API key"}`, false},
		{"store failure", "boom", http.StatusInternalServerError, `{"error":"Internal server error"}`, false},
		{"valid", "good-key", http.StatusOK, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
			if tc.key != "" {
				req.Header.Set(APIKeyHeader, tc.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.called, called)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
			}
		})
	}
}
