// Package auth hashes passwords, issues and verifies bearer tokens, and
// authenticates HTTP requests.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"budgetly/internal/core"
)

// resetTokenBytes gives a 64 character hex reset token.
const resetTokenBytes = 32

func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword returns core.ErrUnauthorized when password does not match hash.
func CheckPassword(hash []byte, password string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return core.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}

// NewResetToken returns a random token to mail out and its bcrypt hash to store.
func NewResetToken() (token string, hash []byte, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate reset token: %w", err)
	}
	token = hex.EncodeToString(buf)
	hash, err = HashPassword(token)
	if err != nil {
		return "", nil, err
	}
	return token, hash, nil
}
