package log_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/decimal-ipc/dscipc/pkg/log"
)

func TestFromContext_DefaultsToNoop(t *testing.T) {
	t.Parallel()

	lg := log.FromContext(context.Background())
	assert.IsType(t, log.NoopLogger{}, lg)
	assert.Equal(t, "noop", lg.Name())
}

func TestSetContextLogger(t *testing.T) {
	t.Parallel()

	base := log.NewZapLogger(log.Config{Format: "json", Output: "stdout"}, &testWriteSyncer{}).WithName("dscipc")

	t.Run("without span", func(t *testing.T) {
		ctx := log.SetContextLogger(context.Background(), base)
		assert.Same(t, base, log.FromContext(ctx))
	})

	t.Run("with span", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{0x01},
			SpanID:     trace.SpanID{0x02},
			TraceFlags: trace.FlagsSampled,
		})
		require.True(t, sc.IsValid())

		ctx := trace.ContextWithSpanContext(context.Background(), sc)
		ctx = log.SetContextLogger(ctx, base)

		lg := log.FromContext(ctx)
		assert.IsType(t, &log.SpanLogger{}, lg)
		assert.Equal(t, "dscipc", lg.Name())
	})

	t.Run("nil logger", func(t *testing.T) {
		ctx := log.SetContextLogger(context.Background(), nil)
		assert.IsType(t, log.NoopLogger{}, log.FromContext(ctx))
	})
}
