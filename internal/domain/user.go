package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// User validation errors
var (
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrPasswordTooWeak     = errors.New("password must contain both letters and digits")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt ignores anything longer
)

// User is a registered account. IDs are assigned by the store.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext, only present during registration
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserSummary is the public projection of a user embedded in tasks and comments.
type UserSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Summary returns the public projection of u.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Email: u.Email}
}

// Principal is the authenticated identity attached to a request or a live
// connection. It is immutable once established.
type Principal struct {
	ID    int64
	Email string
}

// DisplayName returns the email, or a placeholder built from the ID when the
// email is unknown.
func (p Principal) DisplayName() string {
	if p.Email != "" {
		return p.Email
	}
	return "使用者 " + strconv.FormatInt(p.ID, 10)
}

// NewUser creates a new User with the given email and plaintext password.
// The caller is responsible for hashing the password before storing the user.
func NewUser(email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		Email:     strings.TrimSpace(email),
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.Email == "" {
		return ErrEmptyEmail
	}

	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}

	if u.Password != "" {
		return ValidatePassword(u.Password)
	}

	// Existing users loaded from the store only carry the hash.
	if u.HashedPassword == "" {
		return ErrEmptyPassword
	}

	return nil
}

// validateEmailFormat requires a non-empty local part and a dotted domain.
func validateEmailFormat(email string) bool {
	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domainPart, "@") {
		return false
	}
	dot := strings.Index(domainPart, ".")
	return dot > 0 && dot < len(domainPart)-1
}

// ValidatePassword applies the registration rules to a plaintext password.
func ValidatePassword(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return ErrPasswordTooShort
	case len(password) > maxPasswordLength:
		return ErrPasswordTooLong
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrPasswordTooWeak
	}
	return nil
}
