package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
	"github.com/tasklane/tasklane-api/internal/redact"
	"github.com/tasklane/tasklane-api/internal/service/auth"
)

// Authenticator resolves a bearer credential. auth.TokenValidator satisfies it.
type Authenticator interface {
	Validate(ctx context.Context, credential string) (domain.Principal, error)
}

// AuthMiddleware provides bearer authentication for routes.
type AuthMiddleware struct {
	tokens Authenticator
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(tokens Authenticator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate validates the Authorization header and adds the principal to
// the request context. The request logger gains a user_id attribute.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}
		token, ok := shared.BearerToken(r)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		principal, err := m.tokens.Validate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case auth.IsAuthError(err):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				logger.FromContext(r.Context()).Error("failed to validate token", "error", redact.Error(err))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		ctx := shared.WithPrincipal(r.Context(), principal)
		ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With("user_id", principal.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPrincipal returns the principal set by Authenticate.
func GetPrincipal(r *http.Request) (domain.Principal, bool) {
	return shared.PrincipalFromContext(r.Context())
}
