package password

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
)

const (
	MinLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxBytes = 72
)

// Validate checks a new password before it is hashed.
func Validate(plain string) error {
	if utf8.RuneCountInString(plain) < MinLength {
		return fmt.Errorf("password must have at least %d characters: %w", MinLength, appErr.ErrInvalid)
	}
	if len(plain) > MaxBytes {
		return fmt.Errorf("password must be at most %d bytes: %w", MaxBytes, appErr.ErrInvalid)
	}
	return nil
}

func Hash(plain string) (string, error) {
	if err := Validate(plain); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Match reports whether plain hashes to hash. Malformed hashes never match.
func Match(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
