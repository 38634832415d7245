package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-api/internal/config"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
)

func TestNewRespectsLevel(t *testing.T) {
	tests := []struct {
		level      string
		debugShown bool
		infoShown  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"ERROR", false, false},
		{"bogus", false, true},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := logger.New(&buf, config.ServerConfig{LogLevel: tc.level})

			l.Debug("debug message")
			assert.Equal(t, tc.debugShown, bytes.Contains(buf.Bytes(), []byte("debug message")))

			buf.Reset()
			l.Info("info message")
			assert.Equal(t, tc.infoShown, bytes.Contains(buf.Bytes(), []byte("info message")))
		})
	}
}

func TestNewWritesJSONWithEnvironment(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, config.ServerConfig{LogLevel: "info", Environment: "test"})

	l.Info("hello", slog.String("component", "unit"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "unit", entry["component"])
}

func TestSetupReturnsDefaultLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	l, err := logger.Setup(config.ServerConfig{LogLevel: "warn"})

	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Same(t, l, slog.Default())
}

func TestParseLevel(t *testing.T) {
	level, ok := logger.ParseLevel("Warn")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelWarn, level)

	level, ok = logger.ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	fallback := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	t.Run("stored logger is returned", func(t *testing.T) {
		ctx := logger.WithLogger(context.Background(), l)
		assert.Same(t, l, logger.FromContext(ctx))
		assert.Same(t, l, logger.FromContextOrDefault(ctx, fallback))
	})

	t.Run("missing logger yields fallback", func(t *testing.T) {
		assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
		assert.Same(t, slog.Default(), logger.FromContext(context.Background()))
	})

	t.Run("nil logger is not stored", func(t *testing.T) {
		ctx := logger.WithLogger(context.Background(), nil)
		assert.Same(t, fallback, logger.FromContextOrDefault(ctx, fallback))
	})
}
