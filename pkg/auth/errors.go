package auth

import (
	"errors"
	"fmt"
)

// ErrAuthentication is matched by every credential exchange failure.
var ErrAuthentication = errors.New("icims: authentication failed")

// ErrMissingCredentials is returned when the exchanger has no client id or secret.
var ErrMissingCredentials = errors.New("icims: client id and secret are required")

// AuthError describes a failed credential exchange.
type AuthError struct {
	// StatusCode is the token endpoint status, 0 for transport failures.
	StatusCode int

	// Code is the OAuth error code from the response body, if any.
	Code string

	// Message is a human readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	msg := "icims: authentication failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrAuthentication) true for every AuthError.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthentication
}
