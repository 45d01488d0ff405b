package token

import "context"

type storeKey struct{}

// WithStore attaches the token slot of one visitor to ctx.
func WithStore(ctx context.Context, s Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// FromContext returns the store attached to ctx, or fallback.
func FromContext(ctx context.Context, fallback Store) Store {
	if ctx != nil {
		if s, ok := ctx.Value(storeKey{}).(Store); ok && s != nil {
			return s
		}
	}
	return fallback
}
