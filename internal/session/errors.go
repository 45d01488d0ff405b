package session

import "strings"

// AuthenticationError is a login rejected by the backend or by input checks.
// The prior session is left untouched.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

func authError(message string) *AuthenticationError {
	if strings.TrimSpace(message) == "" {
		message = "Login failed"
	}
	return &AuthenticationError{Message: message}
}
