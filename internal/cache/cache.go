// Package cache stores vended tokens between uses. A cache holds at most one
// token per key.
package cache

import (
	"context"
)

// TokenCache defines the interface for token caching implementations.
// The generic type T represents the token type being cached.
type TokenCache[T any] interface {
	// Get retrieves a token from the cache.
	// Returns the token, whether it was found, and any error.
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores a token in the cache, replacing any previous token for key.
	Set(ctx context.Context, key string, token T) error

	// Invalidate removes a token from the cache.
	Invalidate(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// zeroer is implemented by token types that can be present but empty. An
// empty token read back from storage counts as not found.
type zeroer interface {
	IsZero() bool
}

func isZero[T any](v T) bool {
	z, ok := any(v).(zeroer)
	return ok && z.IsZero()
}
