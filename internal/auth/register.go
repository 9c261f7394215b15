package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/harrylevesque/listqr/internal/models"
)

// MinPasswordLength matches what the hosted auth provider used to enforce.
const MinPasswordLength = 6

// ValidateSignUp checks a new account's credentials before anything is stored.
func ValidateSignUp(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return models.NewValidationError("invalid email", "Ingresa un correo válido")
	}
	if len(password) < MinPasswordLength {
		return models.NewValidationError("short password", "La contraseña debe tener al menos 6 caracteres")
	}
	return nil
}

// HashPassword hashes the password
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash checks if the password matches the hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
