package user

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/clinic-management/internal/validation"
)

const (
	MinPasswordLength = 8
	// bcrypt refuses longer inputs.
	MaxPasswordBytes = 72
)

// ValidatePassword records length violations for a new password.
func ValidatePassword(field, password string, v validation.Violations) {
	validation.MinLength(field, password, MinPasswordLength, v)
	if _, bad := v[field]; !bad {
		validation.MaxBytes(field, password, MaxPasswordBytes, v)
	}
}

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
