// Package common defines shared constants and sentinel errors used across
// the SDK and the identity backend. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrStorageConflict = errors.New("storage conflict")
	ErrTimeout         = errors.New("storage timeout")

	// Service-level errors (generic/internal flow control).
	ErrInternal      = errors.New("internal error")
	ErrNoSuchAccount = errors.New("no such account")

	// Auth errors for the signed-assertion verifier.
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformedToken   = errors.New("malformed token")

	// Key-material errors.
	ErrInvalidPassword         = errors.New("invalid password")
	ErrMalformedDeviceContext  = errors.New("malformed device context")
	ErrMalformedDocument       = errors.New("malformed encrypted document")
	ErrInvalidRequestSignature = errors.New("invalid request signature")
)

// Retryable reports whether err belongs to the retryable error category:
// it lost a concurrent race or timed out talking to storage, and re-invoking
// the operation may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageConflict) || errors.Is(err, ErrTimeout)
}
