package cache

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/isprambiente/pdnd-client/internal/cache"

// Instrumented wraps a TokenCache, recording a span for each operation.
type Instrumented[T any] struct {
	wrapped   TokenCache[T]
	cacheType string
	tracer    trace.Tracer
}

// NewInstrumented creates an instrumented cache wrapper. Spans go to the
// global tracer provider, which discards them unless telemetry is enabled.
func NewInstrumented[T any](cache TokenCache[T], cacheType string) *Instrumented[T] {
	return &Instrumented[T]{
		wrapped:   cache,
		cacheType: cacheType,
		tracer:    otel.Tracer(instrumentationName),
	}
}

// Get retrieves a token from the cache.
func (i *Instrumented[T]) Get(ctx context.Context, key string) (T, bool, error) {
	ctx, span := i.start(ctx, "get", key)
	defer span.End()

	value, found, err := i.wrapped.Get(ctx, key)

	status := "miss"
	if err != nil {
		status = "error"
	} else if found {
		status = "hit"
	}
	i.finish(span, status, err)

	return value, found, err
}

// Set stores a token in the cache.
func (i *Instrumented[T]) Set(ctx context.Context, key string, value T) error {
	ctx, span := i.start(ctx, "set", key)
	defer span.End()

	err := i.wrapped.Set(ctx, key, value)
	i.finish(span, statusOf(err), err)

	return err
}

// Invalidate removes a token from the cache.
func (i *Instrumented[T]) Invalidate(ctx context.Context, key string) error {
	ctx, span := i.start(ctx, "invalidate", key)
	defer span.End()

	err := i.wrapped.Invalidate(ctx, key)
	i.finish(span, statusOf(err), err)

	return err
}

// Close releases any resources held by the cache.
func (i *Instrumented[T]) Close() error {
	return i.wrapped.Close()
}

// Unwrap returns the underlying cache.
func (i *Instrumented[T]) Unwrap() TokenCache[T] {
	return i.wrapped
}

func (i *Instrumented[T]) start(ctx context.Context, operation, key string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "cache."+operation,
		trace.WithAttributes(
			attribute.String("cache.type", i.cacheType),
			attribute.String("cache.operation", operation),
			attribute.String("cache.key", key),
		),
	)
}

func (i *Instrumented[T]) finish(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String("cache.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
