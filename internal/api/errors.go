package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/service"
	"github.com/tasklane/tasklane-api/internal/service/auth"
	"github.com/tasklane/tasklane-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case auth.IsAuthError(err),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Bad request errors. A taken email is reported as 400 like any other
	// rejected registration.
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, service.ErrInvalidPagination),
		domainValidationCause(err) != nil:
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

var domainValidationErrors = []error{
	domain.ErrValidation,
	domain.ErrInvalidID,
	domain.ErrInvalidEmail,
	domain.ErrEmptyEmail,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordTooLong,
	domain.ErrPasswordTooWeak,
	domain.ErrEmptyPassword,
	domain.ErrEmptyTaskTitle,
	domain.ErrTaskTitleTooLong,
	domain.ErrInvalidTaskStatus,
	domain.ErrEmptyCommentContent,
	domain.ErrCommentTooLong,
}

// domainValidationCause returns the domain validation sentinel err matches,
// or nil.
func domainValidationCause(err error) error {
	for _, target := range domainValidationErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case auth.IsAuthError(err):
		return "Invalid token"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Incorrect email or password"

	case errors.Is(err, service.ErrNotOwned):
		return "You can only delete your own comments"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrCommentNotFound):
		return "Comment not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already registered"

	case errors.Is(err, service.ErrInvalidPagination):
		return "Invalid pagination parameters"

	// Domain validation messages are written for end users.
	case domainValidationCause(err) != nil:
		return capitalize(domainValidationCause(err).Error())

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. fallback
// replaces the generic message for 5xx responses when non-empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
