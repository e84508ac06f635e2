// Package auth issues and verifies bearer tokens and password credentials.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt credential for password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether password matches credential.
func CheckPassword(credential, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(credential), []byte(password)) == nil
}
