package auth

import (
	"strings"

	"github.com/harrylevesque/listqr/internal/models"
)

// LoginRequest represents the sign-in and sign-up payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks both fields are present.
func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return models.NewValidationError("missing credentials", "Ingresa tu correo y contraseña")
	}
	return nil
}
