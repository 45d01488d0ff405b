// Package session derives the signed-in identity from the stored token and
// owns the process-wide session state exposed to the front ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/model"
	"github.com/fairyhunter13/coupon-console/internal/token"
)

// Clock returns the current wall-clock time.
type Clock func() time.Time

// Evaluator answers "is there a usable session" from the token store.
type Evaluator struct {
	store token.Store
	now   Clock
}

// NewEvaluator returns an evaluator over store. A nil clock uses time.Now.
func NewEvaluator(store token.Store, now Clock) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{store: store, now: now}
}

// IsValid reports whether raw decodes and has not yet expired.
// No clock skew allowance: expiry must lie strictly after now.
func (e *Evaluator) IsValid(raw string) bool {
	claims, err := token.Decode(raw)
	if err != nil {
		return false
	}
	return claims.ExpiresAt.After(e.now())
}

// Current returns the identity of the stored token, or nil when there is none.
// An expired or malformed token is removed from the store before returning nil.
// The error is only set when the store itself fails.
func (e *Evaluator) Current(ctx context.Context) (*model.User, error) {
	raw, err := e.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	claims, err := token.Decode(raw)
	if err == nil && !claims.ExpiresAt.After(e.now()) {
		err = errExpired
	}
	if err != nil {
		log.Info().Err(err).Msg("discarding unusable stored token")
		if rmErr := e.store.Remove(ctx); rmErr != nil {
			return nil, fmt.Errorf("purge token: %w", rmErr)
		}
		return nil, nil
	}

	return &model.User{Username: claims.Subject, Role: claims.Role}, nil
}

var errExpired = errors.New("token expired")
