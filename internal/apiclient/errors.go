package apiclient

import (
	"errors"
	"net/http"
)

// ErrUnauthorized matches any *Error caused by an HTTP 401 response.
// By the time it is returned the session has already been cleared.
var ErrUnauthorized = errors.New("session expired")

// Error is the normalized failure of an API call. Message is the envelope's
// message when the backend sent one, otherwise the transport error text.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets callers use errors.Is(err, ErrUnauthorized).
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0 for transport failures.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
