package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"ErrTaskNotFound", ErrTaskNotFound, true},
		{"wrapped ErrCommentNotFound", fmt.Errorf("load: %w", ErrCommentNotFound), true},
		{"store error wrapping ErrUserNotFound", NewStoreError("user", "get", "missing", ErrUserNotFound), true},
		{"ErrEmailExists", ErrEmailExists, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(ErrEmailExists))
	assert.True(t, IsDuplicateError(fmt.Errorf("create user: %w", ErrEmailExists)))
	assert.False(t, IsDuplicateError(ErrTaskNotFound))
	assert.False(t, IsDuplicateError(nil))
}

func TestStoreError(t *testing.T) {
	originalErr := errors.New("database connection failed")
	storeErr := NewStoreError("comment", "create", "database error", originalErr)

	assert.Equal(t, "create operation on comment failed: database error: database connection failed", storeErr.Error())
	assert.ErrorIs(t, storeErr, originalErr)

	bare := NewStoreError("task", "list", "bad filter", nil)
	assert.Equal(t, "list operation on task failed: bad filter", bare.Error())
}
