package domain

import "errors"

var (
	// ErrValidation wraps entity-level validation failures that have no more
	// specific sentinel.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID rejects zero or negative user, task and comment ids.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized rejects an operation the principal may not perform.
	ErrUnauthorized = errors.New("unauthorized operation")
)
