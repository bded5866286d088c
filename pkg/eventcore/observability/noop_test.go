package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}

	assert.NotPanics(t, func() {
		m.RecordEmit(context.Background(), "a", 3, time.Millisecond)
		m.RecordHandlerError(context.Background(), "a", "h", "panic")
		m.RecordCleanup(context.Background(), 2)
	})

	t.Run("empty values", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordEmit(context.Background(), "", 0, 0)
			m.RecordHandlerError(context.Background(), "", "", "")
			m.RecordCleanup(context.Background(), 0)
		})
	})
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}

	ctx := context.Background()
	newCtx, span := sm.StartEmitSpan(ctx, "a", "b", "c")

	assert.Equal(t, ctx, newCtx, "noop span manager must not touch the context")
	assert.NotNil(t, span)
	assert.False(t, span.IsRecording())

	assert.NotPanics(t, func() {
		sm.AddSpanEvent(newCtx, "handler.failed", attribute.String("handler", "x"))
		sm.EndSpanWithError(span, nil)
	})
}
