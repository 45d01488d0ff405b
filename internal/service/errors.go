package service

import "errors"

var (
	// ErrCouponNotFound is returned when the backend has no coupon with the requested id
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrImageNotFound is returned when the backend has no image with the requested id
	ErrImageNotFound = errors.New("image not found")

	// ErrInvalidRequest is returned when request data fails validation before it is sent
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRejected is returned when the backend answers with success=false
	ErrRejected = errors.New("request rejected")
)

// Error pairs one of the sentinel errors above with a message fit for display.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalid(msg string, err error) error {
	return &Error{Kind: ErrInvalidRequest, Message: msg, Err: err}
}

func rejected(msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return &Error{Kind: ErrRejected, Message: msg}
}
