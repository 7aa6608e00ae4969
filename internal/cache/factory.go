package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/isprambiente/pdnd-client/internal/config"
	"github.com/rs/zerolog/log"
)

// NewFromConfig creates a cache implementation based on the provided configuration.
//
// The cache type must be either "file" or "memory". Any other value returns an error.
// The ttl and maxMemorySize settings only apply to the memory cache.
func NewFromConfig[T any](
	ctx context.Context,
	cacheConfig config.CacheConfig,
	ttl time.Duration,
	maxMemorySize int,
) (TokenCache[T], error) {
	switch cacheConfig.Type {
	case "file", "":
		file := NewFile[T](cacheConfig.Dir)

		log.Ctx(ctx).Debug().
			Str("cache_type", "file").
			Str("dir", file.dir).
			Msg("initializing file token cache")

		return NewInstrumented[T](file, "file"), nil

	case "memory":
		log.Ctx(ctx).Debug().
			Str("cache_type", "memory").
			Msg("initializing in-memory token cache")

		memory, err := NewMemory[T](ttl, maxMemorySize)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}

		return NewInstrumented[T](memory, "memory"), nil

	default:
		return nil, fmt.Errorf("invalid cache type %q: must be either \"file\" or \"memory\"", cacheConfig.Type)
	}
}
