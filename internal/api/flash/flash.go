// Package flash carries one-shot user messages across a redirect in a
// short-lived signed cookie.
package flash

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"
)

const (
	cookieName = "flash"
	maxAge     = 60
)

// Kinds of flash message.
const (
	Success = "success"
	Error   = "error"
)

// Message is a single flash notice.
type Message struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Store reads and writes flash cookies signed with a key derived from the
// application secret. Cookies with a missing or foreign signature are ignored.
type Store struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewStore creates a Store. Secure cookies should be enabled whenever the
// app is served over TLS.
func NewStore(secret string, secure bool) *Store {
	key := sha256.Sum256([]byte("flash:" + secret))
	codec := securecookie.New(key[:], nil)
	codec.MaxAge(maxAge)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Store{codec: codec, secure: secure}
}

// Set stores a message to be shown on the next rendered page.
func (s *Store) Set(w http.ResponseWriter, kind, text string) {
	value, err := s.codec.Encode(cookieName, Message{Kind: kind, Text: text})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode flash message")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending message, if any, and clears it.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) *Message {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secure})

	var m Message
	if err := s.codec.Decode(cookieName, c.Value, &m); err != nil {
		log.Debug().Err(err).Msg("Discarding unreadable flash cookie")
		return nil
	}
	if m.Text == "" {
		return nil
	}
	return &m
}
