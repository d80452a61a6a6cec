package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when the admin password is blank.
var ErrEmptyPassword = errors.New("password is empty")

// HashPassword returns the bcrypt hash of plain.  A cost outside bcrypt's
// accepted range falls back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckHash reports whether hash looks like a bcrypt hash, so a
// misconfigured ADMIN_PASSWORD_HASH fails at startup instead of at login.
func CheckHash(hash string) error {
	_, err := bcrypt.Cost([]byte(hash))
	return err
}

// VerifyPassword compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	if plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
