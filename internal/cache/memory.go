package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
	"github.com/rs/zerolog/log"
)

// Memory keeps tokens in process memory using otter, so they are gone when
// the run ends. Entries are dropped ttl after they were written, whatever the
// token's own expiry.
type Memory[T any] struct {
	cache   *otter.Cache[string, T]
	counter *stats.Counter
}

// NewMemory creates a memory cache holding at most maxSize tokens.
func NewMemory[T any](ttl time.Duration, maxSize int) (*Memory[T], error) {
	counter := stats.NewCounter()
	cache := otter.Must(&otter.Options[string, T]{
		MaximumSize:      maxSize,
		StatsRecorder:    counter,
		ExpiryCalculator: otter.ExpiryCreating[string, T](ttl),
	})

	return &Memory[T]{
		cache:   cache,
		counter: counter,
	}, nil
}

// Get returns the token stored under key. An empty token counts as a miss.
func (m *Memory[T]) Get(ctx context.Context, key string) (T, bool, error) {
	value, ok := m.cache.GetIfPresent(key)
	if !ok || isZero(value) {
		var zero T
		return zero, false, nil
	}

	return value, true, nil
}

// Set stores a token, replacing any token already stored under key.
func (m *Memory[T]) Set(ctx context.Context, key string, token T) error {
	m.cache.Set(key, token)
	return nil
}

// Invalidate drops the token stored under key.
func (m *Memory[T]) Invalidate(ctx context.Context, key string) error {
	m.cache.Invalidate(key)
	return nil
}

// Stats reports lookups since the cache was created.
func (m *Memory[T]) Stats() stats.Stats {
	return m.counter.Snapshot()
}

// Close logs the lookup counts for the run.
func (m *Memory[T]) Close() error {
	s := m.Stats()
	log.Debug().
		Uint64("hits", s.Hits).
		Uint64("misses", s.Misses).
		Uint64("evictions", s.Evictions).
		Msg("memory token cache closed")

	return nil
}
