package services

import (
	"errors"

	"github.com/healthdesk/client-registry/internal/auth"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")

	ErrInvalidCredentials     = auth.ErrInvalidCredentials
	ErrCorruptCredentialState = auth.ErrCorruptCredentialState
	ErrMissingKey             = auth.ErrMissingKey
	ErrInvalidKey             = auth.ErrInvalidKey
)

// Error is a domain error with a message that is safe to show to users.
// errors.Is matches it against its Kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func notFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }
func invalid(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }
func conflict(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

// UserMessage returns the user-facing text of a domain error, or fallback
// for anything else.
func UserMessage(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return fallback
}
