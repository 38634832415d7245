package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
	"github.com/tasklane/tasklane-api/internal/redact"
	"github.com/tasklane/tasklane-api/internal/service"
	"github.com/tasklane/tasklane-api/internal/service/auth"
	"github.com/tasklane/tasklane-api/internal/store"
)

// TokenTypeBearer is reported in every TokenResponse.
const TokenTypeBearer = "bearer"

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	users      service.UserService
	jwtService auth.JWTService
	authConfig *config.AuthConfig
	timeFunc   func() time.Time
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	users service.UserService,
	jwtService auth.JWTService,
	authConfig *config.AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	if users == nil || jwtService == nil || authConfig == nil {
		// ALLOW-PANIC: Constructor enforcing required dependencies
		panic("users, jwtService and authConfig cannot be nil for AuthHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
		authConfig: authConfig,
		timeFunc:   time.Now,
		logger:     logger.With(slog.String("component", "auth_handler")),
	}
}

// WithTimeFunc returns a copy of the handler using fn as its clock.
func (h *AuthHandler) WithTimeFunc(fn func() time.Time) *AuthHandler {
	clone := *h
	clone.timeFunc = fn
	return &clone
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, userToResponse(user))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	h.issueTokens(w, r, user.ID)
}

// RefreshToken handles POST /auth/refresh. A valid refresh token for an
// existing user yields a fresh token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if auth.IsAuthError(err) {
			log.Debug("refresh token rejected", "error", redact.Error(err))
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	if _, err := h.users.GetUser(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	h.issueTokens(w, r, claims.UserID)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), principal.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, userID int64) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	access, err := h.jwtService.GenerateToken(r.Context(), userID)
	if err != nil {
		log.Error("failed to generate access token", "error", redact.Error(err), "user_id", userID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}
	refresh, err := h.jwtService.GenerateRefreshToken(r.Context(), userID)
	if err != nil {
		log.Error("failed to generate refresh token", "error", redact.Error(err), "user_id", userID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	expiresAt := h.timeFunc().UTC().Add(time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute)
	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
	})
}

