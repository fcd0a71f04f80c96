// Package auth hashes and verifies account passwords.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatchedPassword is returned by Verify when the password is wrong.
var ErrMismatchedPassword = errors.New("incorrect password")

// Hash returns the bcrypt hash of password at the default cost.
func Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// Verify compares password against a hash produced by Hash.
func Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatchedPassword
	default:
		return fmt.Errorf("verifying password: %w", err)
	}
}
