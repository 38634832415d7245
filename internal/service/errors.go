package service

import "errors"

// Common service errors. Callers match them with errors.Is.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one
	// making the request. API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidPagination is returned for negative offsets or out-of-range limits.
	ErrInvalidPagination = errors.New("invalid pagination parameters")
)
