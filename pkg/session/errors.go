package session

import "errors"

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrExpired is returned when a session has expired.
	ErrExpired = errors.New("session: expired")

	// ErrTypeMismatch is returned when a stored value has an unexpected type.
	ErrTypeMismatch = errors.New("session: value type mismatch")

	// ErrNotConfigured is returned when no session manager is wired in.
	ErrNotConfigured = errors.New("session: not configured")
)
