// Package observe configures OpenTelemetry tracing for the client's outgoing
// HTTP calls.
package observe

import (
	"context"
	"fmt"
	"io"

	"github.com/go-logr/zerologr"
	"github.com/isprambiente/pdnd-client/internal/config"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const ServiceName = "pdnd-client"

// Configure installs a global tracer provider that writes spans to w. When
// telemetry is disabled it does nothing and the returned shutdown is a no-op.
// The shutdown function flushes pending spans and must be called before exit.
func Configure(ctx context.Context, cfg config.ObserveConfig, w io.Writer) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		log.Debug().Msg("telemetry: disabled")
		return func(context.Context) error { return nil }, nil
	}

	// otel's internal diagnostics go through the application logger
	otel.SetLogger(zerologr.New(&log.Logger))

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTel resource: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	// the process is short lived: spans are exported as they end
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Debug().Msg("telemetry: stdout trace export enabled")

	return tp.Shutdown, nil
}
