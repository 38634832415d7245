package mocks

import "errors"

// MockPasswordVerifier implements auth.PasswordVerifier for testing.
// The zero value compares plaintext for equality, matching MockUserStore,
// which stores the plaintext password as the hash.
type MockPasswordVerifier struct {
	CompareFn        func(hashedPassword, password string) error
	CompareCallCount int
}

// Compare implements the auth.PasswordVerifier interface
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.CompareCallCount++
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if hashedPassword != password {
		return errors.New("password mismatch")
	}
	return nil
}
