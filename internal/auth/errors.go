package auth

import "errors"

var (
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrCorruptCredentialState = errors.New("stored credentials cannot be verified")
	ErrMissingKey             = errors.New("API key is required")
	ErrInvalidKey             = errors.New("invalid API key")
)
