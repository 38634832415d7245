package auth

import "errors"

// Common authentication service errors
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrWrongTokenType indicates a refresh token was presented where an access
	// token was expected, or the reverse.
	ErrWrongTokenType = errors.New("wrong token type")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("refresh token has expired")
)

// IsAuthError reports whether err means the presented credential was rejected.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrTokenNotYetValid) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrWrongTokenType) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrExpiredRefreshToken)
}
