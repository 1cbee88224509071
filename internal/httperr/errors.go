// Package httperr defines the client-facing error taxonomy and the Echo
// error handler that renders it.  Every expected failure maps to a stable
// status code and message; anything else collapses into a generic 500 so
// that internal detail never leaks in production responses.
package httperr

import (
	"errors"
	"net/http"

	"github.com/userstack/auth-service/internal/token"
)

// APIError is an expected, client-facing failure.  Handlers and services
// return these as regular errors; the central handler renders them.
type APIError struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

func (e *APIError) Error() string { return e.StatusMessage }

// New builds an APIError with the given status code and message.
func New(code int, message string) *APIError {
	return &APIError{StatusCode: code, StatusMessage: message}
}

// The full taxonomy.  Login deliberately collapses "no such user" and
// "wrong password" into ErrInvalidCredentials to avoid account enumeration.
var (
	ErrDuplicateEmail     = New(http.StatusBadRequest, "Email already taken")
	ErrRoleNotFound       = New(http.StatusBadRequest, "Role not found")
	ErrInvalidCredentials = New(http.StatusBadRequest, "Incorrect email or password")
	ErrAccountTerminated  = New(http.StatusBadRequest, "Your account has been terminated")
	ErrAccountInactive    = New(http.StatusBadRequest, "Your account is not active")
	ErrUserNotFound       = New(http.StatusBadRequest, "User not found")
	ErrMissingToken       = New(http.StatusUnauthorized, "Token is required")
	ErrTokenInvalid       = New(http.StatusUnauthorized, "Invalid Token")
	ErrTokenExpired       = New(http.StatusUnauthorized, "Token is expired")
)

// FromTokenError translates codec verification failures into the taxonomy.
// Any unexpected error is passed through untouched and ends up as a 500.
func FromTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrTokenInvalid):
		return ErrTokenInvalid
	default:
		return err
	}
}
