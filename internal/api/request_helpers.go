package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tasklane/tasklane-api/internal/api/middleware"
	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
)

// Path parameter names registered by the router.
const (
	TaskIDParam    = "taskID"
	CommentIDParam = "commentID"
)

var errBadQuery = errors.New("invalid query parameter")

// getPathID parses a positive integer path parameter.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// getQueryInt parses an optional integer query parameter, returning def when
// it is absent.
func getQueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadQuery
	}
	return v, nil
}

// getPagination reads skip and limit. A missing limit is reported as zero so
// the service applies its default.
func getPagination(r *http.Request) (offset, limit int, err error) {
	if offset, err = getQueryInt(r, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = getQueryInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

// requirePrincipal returns the authenticated principal, writing a 401 when
// the auth middleware did not run.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.GetPrincipal(r)
	if !ok {
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Warn("principal not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Not authenticated")
		return domain.Principal{}, false
	}
	return p, true
}

// decodeAndValidate reads a JSON body into v and runs its validate tags.
// It writes a 400 and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return false
	}
	return true
}
