package token

import "errors"

var (
	// ErrInvalidToken covers every validation failure: bad signature,
	// expired, wrong type, blacklisted, revoked. Callers never learn
	// which check failed.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrMissingSecret is returned by NewService when no signing secret
	// is configured.
	ErrMissingSecret = errors.New("signing secret is required")

	// ErrStoreFailure wraps blacklist store errors on the issue path,
	// where hiding them behind ErrInvalidToken would mask an outage.
	ErrStoreFailure = errors.New("token store failure")
)
