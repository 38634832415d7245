package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/mocks"
	"github.com/tasklane/tasklane-api/internal/service"
	"github.com/tasklane/tasklane-api/internal/store"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user", func(t *testing.T) {
		users := mocks.NewMockUserStore()
		svc := service.NewUserService(users, &mocks.MockPasswordVerifier{}, mocks.NewTxDB(t, 1), nil)

		user, err := svc.Register(ctx, "  a@example.com ", "secret1")

		require.NoError(t, err)
		assert.Positive(t, user.ID)
		assert.Equal(t, "a@example.com", user.Email)
		assert.Empty(t, user.Password)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		users := mocks.NewMockUserStore(&domain.User{ID: 1, Email: "a@example.com", HashedPassword: "x"})
		svc := service.NewUserService(users, &mocks.MockPasswordVerifier{}, mocks.NewTxDB(t, 1), nil)

		_, err := svc.Register(ctx, "a@example.com", "secret1")

		assert.ErrorIs(t, err, store.ErrEmailExists)
	})

	t.Run("rejects weak password without touching store", func(t *testing.T) {
		users := mocks.NewMockUserStore()
		users.CreateFn = func(context.Context, *domain.User) error {
			t.Fatal("store must not be called")
			return nil
		}
		svc := service.NewUserService(users, &mocks.MockPasswordVerifier{}, mocks.NewTxDB(t, 0), nil)

		_, err := svc.Register(ctx, "a@example.com", "abcdefg")

		assert.ErrorIs(t, err, domain.ErrPasswordTooWeak)
	})

	t.Run("wraps store failure", func(t *testing.T) {
		users := mocks.NewMockUserStore()
		boom := errors.New("db down")
		users.CreateFn = func(context.Context, *domain.User) error { return boom }
		svc := service.NewUserService(users, &mocks.MockPasswordVerifier{}, mocks.NewTxDB(t, 1), nil)

		_, err := svc.Register(ctx, "a@example.com", "secret1")

		assert.ErrorIs(t, err, boom)
	})
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserStore(&domain.User{ID: 7, Email: "a@example.com", HashedPassword: "secret1"})
	verifier := &mocks.MockPasswordVerifier{}
	svc := service.NewUserService(users, verifier, mocks.NewTxDB(t, 0), nil)

	user, err := svc.Authenticate(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)

	_, err = svc.Authenticate(ctx, "a@example.com", "wrong1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	assert.Equal(t, 2, verifier.CompareCallCount)
}

func TestUserService_GetUser(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserStore(&domain.User{ID: 3, Email: "c@example.com"})
	svc := service.NewUserService(users, &mocks.MockPasswordVerifier{}, mocks.NewTxDB(t, 0), nil)

	user, err := svc.GetUser(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", user.Email)

	_, err = svc.GetUser(ctx, 99)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
