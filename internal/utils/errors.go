package utils

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// HTTPError is the JSON error payload of the API.
type HTTPError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Reason  string `json:"reason,omitempty"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// Render sets the response status before go-chi/render encodes the payload.
func (e *HTTPError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Code)
	return nil
}

func New(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}
