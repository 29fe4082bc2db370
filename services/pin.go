package services

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPinLen = 4
	maxPinLen = 6
)

// ValidatePin checks that pin is 4 to 6 ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) < minPinLen || len(pin) > maxPinLen {
		return fmt.Errorf("%w: pin must be %d-%d digits", ErrInputValidation, minPinLen, maxPinLen)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: pin must contain digits only", ErrInputValidation)
		}
	}
	return nil
}

// HashPin returns a bcrypt hash of pin suitable for ADMIN_PIN. Do not log pin.
func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// isBcryptHash reports whether s looks like a bcrypt hash rather than a plain pin.
func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
