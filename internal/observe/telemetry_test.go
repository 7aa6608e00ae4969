package observe_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/isprambiente/pdnd-client/internal/config"
	"github.com/isprambiente/pdnd-client/internal/observe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestConfigure_EnabledExportsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var out bytes.Buffer
	ctx := context.Background()

	shutdown, err := observe.Configure(ctx, config.ObserveConfig{Enabled: true}, &out)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "token.exchange")
	span.End()

	require.NoError(t, shutdown(ctx))

	assert.Contains(t, out.String(), `"Name": "token.exchange"`)
	assert.Contains(t, out.String(), observe.ServiceName)
}
