// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Registration.
	ErrDuplicateAccount = errors.New("account already exists")

	// Handshake errors. The messages are safe to show to a client.
	ErrAccountNotFound         = errors.New("user not found")
	ErrSessionExpiredOrMissing = errors.New("invalid or expired session")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidEphemeral        = errors.New("invalid client ephemeral")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
