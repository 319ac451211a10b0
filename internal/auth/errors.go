package auth

import "errors"

var (
	// ErrUnauthorized covers every authentication failure: bad credentials,
	// invalid/expired/revoked tokens, inactive or missing subjects. The
	// causes deliberately collapse so responses cannot be used to enumerate
	// accounts.
	ErrUnauthorized = errors.New("auth: unauthorized")
	// ErrForbidden is an authorization deny for an authenticated caller.
	ErrForbidden = errors.New("auth: forbidden")
	ErrNotFound  = errors.New("auth: not found")
	ErrConflict  = errors.New("auth: already exists")
	// ErrInvalidInput is a request validation failure (400, with field detail
	// where the caller supplies it).
	ErrInvalidInput = errors.New("auth: invalid input")
)
