package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/store"
)

type userLookupFunc func(ctx context.Context, id int64) (*domain.User, error)

func (f userLookupFunc) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return f(ctx, id)
}

func TestTokenValidator(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testSecret, time.Now())
	users := userLookupFunc(func(_ context.Context, id int64) (*domain.User, error) {
		switch id {
		case 1:
			return &domain.User{ID: 1, Email: "a@b.co"}, nil
		case 2:
			return nil, store.ErrUserNotFound
		default:
			return nil, errors.New("db down")
		}
	})
	v := NewTokenValidator(svc, users, nil)

	token := func(id int64) string {
		tok, err := svc.GenerateToken(context.Background(), id)
		require.NoError(t, err)
		return tok
	}

	principal, err := v.Validate(context.Background(), token(1))
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{ID: 1, Email: "a@b.co"}, principal)

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = v.Validate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(context.Background(), token(2))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(context.Background(), token(3))
	require.Error(t, err)
	assert.False(t, IsAuthError(err))
}
