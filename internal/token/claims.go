package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrDecode is returned when a token is not a well-formed JWT or lacks a required claim.
var ErrDecode = errors.New("malformed token")

// Claims is the part of the token payload the console relies on.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

type payload struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Decode parses the token's claims without verifying its signature.
// Signature checks belong to the backend; the console only reads identity and expiry.
func Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrDecode)
	}

	var p payload
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch {
	case p.Subject == "":
		return nil, fmt.Errorf("%w: missing sub claim", ErrDecode)
	case p.Role == "":
		return nil, fmt.Errorf("%w: missing role claim", ErrDecode)
	case p.ExpiresAt == nil:
		return nil, fmt.Errorf("%w: missing exp claim", ErrDecode)
	}

	return &Claims{
		Subject:   p.Subject,
		Role:      p.Role,
		ExpiresAt: p.ExpiresAt.Time,
	}, nil
}
