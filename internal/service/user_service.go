package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/store"
)

// PasswordVerifier compares a stored hash with a plaintext candidate.
// auth.BcryptVerifier satisfies it.
type PasswordVerifier interface {
	Compare(hashedPassword, password string) error
}

// UserService provides account registration and lookup.
type UserService interface {
	// Register creates an account. Returns store.ErrEmailExists for a taken email
	// and domain validation errors for bad input.
	Register(ctx context.Context, email, password string) (*domain.User, error)

	// Authenticate returns the user for a matching email/password pair, or
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser returns store.ErrUserNotFound if the user does not exist.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	verifier  PasswordVerifier
	db        store.TxBeginner
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	verifier PasswordVerifier,
	db store.TxBeginner,
	logger *slog.Logger,
) *UserServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		verifier:  verifier,
		db:        db,
		logger:    logger.With("component", "user_service"),
	}
}

var _ UserService = (*UserServiceImpl)(nil)

// Register implements UserService.Register
func (s *UserServiceImpl) Register(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(email, password)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to register existing email")
			return nil, store.ErrEmailExists
		}
		s.logger.Error("failed to save user", "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate implements UserService.Authenticate
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser implements UserService.GetUser
func (s *UserServiceImpl) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to retrieve user", "error", err, "user_id", userID)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}
