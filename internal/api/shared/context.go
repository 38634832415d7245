package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tasklane/tasklane-api/internal/domain"
)

// ContextKey is the type of request context keys set by the API layer.
type ContextKey string

const (
	// PrincipalContextKey holds the authenticated domain.Principal.
	PrincipalContextKey ContextKey = "principal"

	// TraceIDKey holds the request trace ID.
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader carries the trace ID in responses, and in requests when a
	// caller wants to supply its own.
	TraceIDHeader = "X-Trace-ID"

	maxTraceIDLength = 64
)

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// WithTraceID adds traceID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace ID from the context, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// NewTraceID returns a 32 character hex identifier.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SanitizeTraceID returns id if it is a usable caller-supplied trace ID.
func SanitizeTraceID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxTraceIDLength {
		return "", false
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return "", false
		}
	}
	return id, true
}

// WithPrincipal stores the authenticated principal on the context.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(domain.Principal)
	return p, ok
}
