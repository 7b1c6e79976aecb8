package flash

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetThenPop(t *testing.T) {
	store := NewStore("secret", false)
	rec := httptest.NewRecorder()
	store.Set(rec, Error, "Client not found")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()

	msg := store.Pop(rec, req)
	require.NotNil(t, msg)
	assert.Equal(t, Error, msg.Kind)
	assert.Equal(t, "Client not found", msg.Text)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestPopWithoutCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.Nil(t, NewStore("secret", false).Pop(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestPopIgnoresGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "%%%not-base64"})
	assert.Nil(t, NewStore("secret", false).Pop(httptest.NewRecorder(), req))
}

func TestPopRejectsUnsignedMessage(t *testing.T) {
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"kind":"success","text":"Your account is locked, call 555-0199"}`))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: forged})

	assert.Nil(t, NewStore("secret", false).Pop(httptest.NewRecorder(), req))
}

func TestPopRejectsForeignSignature(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStore("other-secret", false).Set(rec, Success, "Planted notice")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	assert.Nil(t, NewStore("secret", false).Pop(httptest.NewRecorder(), req))
}
