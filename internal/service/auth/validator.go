package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/store"
)

// UserLookup resolves a user by ID. store.UserStore satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// TokenValidator turns a bearer credential into a Principal.
// It is safe for concurrent use.
type TokenValidator struct {
	jwt    JWTService
	users  UserLookup
	logger *slog.Logger
}

// NewTokenValidator creates a TokenValidator backed by jwtService and users.
func NewTokenValidator(jwtService JWTService, users UserLookup, logger *slog.Logger) *TokenValidator {
	if jwtService == nil || users == nil {
		// ALLOW-PANIC: Constructor enforcing required dependencies
		panic("jwtService and users cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenValidator{
		jwt:    jwtService,
		users:  users,
		logger: logger.With(slog.String("component", "token_validator")),
	}
}

// Validate verifies credential and returns the identity it names.
// Rejections are reported as ErrMissingToken, ErrInvalidToken, ErrExpiredToken,
// ErrTokenNotYetValid or ErrWrongTokenType. A token naming an unknown user is
// ErrInvalidToken. Other errors are lookup failures.
func (v *TokenValidator) Validate(ctx context.Context, credential string) (domain.Principal, error) {
	if credential == "" {
		return domain.Principal{}, ErrMissingToken
	}

	claims, err := v.jwt.ValidateToken(ctx, credential)
	if err != nil {
		return domain.Principal{}, err
	}

	user, err := v.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			v.logger.DebugContext(ctx, "token names unknown user", slog.Int64("user_id", claims.UserID))
			return domain.Principal{}, ErrInvalidToken
		}
		v.logger.ErrorContext(ctx, "failed to load token principal",
			slog.Int64("user_id", claims.UserID),
			slog.String("error", err.Error()))
		return domain.Principal{}, err
	}

	return domain.Principal{ID: user.ID, Email: user.Email}, nil
}
