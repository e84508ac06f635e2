// Package common defines shared constants and sentinel errors used across
// the timekeeper packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStoreUnavailable marks a failure to reach a backend at all
	// (connection refused, timeout, closed pool). Callers fall back to the mirror.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrQueryFailed marks a backend that answered but rejected the statement.
	ErrQueryFailed = errors.New("query failed")

	// ErrConflict is a QueryFailed caused by a uniqueness violation.
	ErrConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
