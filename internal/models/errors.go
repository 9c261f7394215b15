package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSignInRequired     = errors.New("sign in required")
	ErrNotOwner           = errors.New("list belongs to another user")
)

// ValidationError is a client input problem. Message is shown to the user.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func NewValidationError(reason, message string) *ValidationError {
	return &ValidationError{Reason: reason, Message: message}
}

// RemoteError wraps a storage failure. The operation must be treated as not having happened.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// UserMessage returns the text to show for err, falling back to fallback.
func UserMessage(err error, fallback string) string {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Message != "" {
		return ve.Message
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return fallback
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "Lista no encontrada"
	case errors.Is(err, ErrInvalidCredentials):
		return "Correo o contraseña incorrectos"
	case errors.Is(err, ErrEmailTaken):
		return "Ese correo ya está registrado"
	case errors.Is(err, ErrNotOwner):
		return "Solo el propietario puede editar esta lista"
	case errors.Is(err, ErrSignInRequired):
		return "Inicia sesión para continuar"
	}
	return fallback
}
