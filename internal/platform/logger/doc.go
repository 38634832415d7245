// Package logger builds the JSON slog logger used by every component and
// carries request- or session-scoped loggers on contexts.
package logger
