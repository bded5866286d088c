package event_test

import (
	"context"
	"io"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventcore/pkg/eventcore/config"
	"github.com/randalmurphal/eventcore/pkg/eventcore/event"
)

// TestDefault is the only test in this package that touches the
// process-wide bus.
func TestDefault(t *testing.T) {
	created := event.InitDefault(event.BusConfig{CleanupThreshold: 4, ErrorOutput: io.Discard})
	require.True(t, created)
	assert.False(t, event.InitDefault(event.BusConfig{}), "second initialization is refused")

	bus := event.Default()
	require.NotNil(t, bus)
	assert.Same(t, bus, event.Default())

	t.Cleanup(bus.Clear)

	t.Run("registry event", func(t *testing.T) {
		var got []event.Event
		h := event.NewHandler("collect", func(ctx context.Context, evt event.Event) error {
			got = append(got, evt)
			return nil
		})
		defer runtime.KeepAlive(h)
		bus.Subscribe("registry.remove", h)

		event.EmitRegistryEvent(context.Background(), event.OperationRemove, "worker_pool", "command", map[string]any{"reason": "shutdown"})

		require.Len(t, got, 1)
		evt := got[0]
		assert.Equal(t, "registry.remove", evt.Name())
		assert.Equal(t, event.RegistrySource, evt.Source())

		rec, ok := evt.(*event.RegistryRecord)
		require.True(t, ok, "expected *RegistryRecord, got %T", evt)
		assert.Equal(t, "remove", rec.Operation())
		assert.Equal(t, "worker_pool", rec.ItemName())
		assert.Equal(t, "command", rec.Dimension())

		reason, _ := evt.Value("reason")
		assert.Equal(t, "shutdown", reason)
	})

	t.Run("config applied", func(t *testing.T) {
		bus.Clear()
		h := event.NewHandler("tick", namedHandlerFunc)
		defer runtime.KeepAlive(h)
		bus.Subscribe("tick", h)

		for i := 0; i < 3; i++ {
			bus.Emit(context.Background(), event.New("tick", nil))
		}
		assert.Equal(t, 3, bus.MemoryStats().OperationCount)

		bus.Emit(context.Background(), event.New("tick", nil))
		assert.Equal(t, 0, bus.MemoryStats().OperationCount)
	})
}

func TestBusEmitRegistryEvent(t *testing.T) {
	bus := newTestBus(event.BusConfig{})

	var got event.Event
	h := event.NewHandler("collect", func(ctx context.Context, evt event.Event) error {
		got = evt
		return nil
	})
	defer runtime.KeepAlive(h)
	bus.Subscribe("registry.register", h)

	bus.EmitRegistryEvent(context.Background(), event.OperationRegister, "cache", "service", nil)

	require.NotNil(t, got)
	assert.Equal(t, "registry.register", got.Name())
	assert.Empty(t, got.Payload())
}

func TestBusConfigFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		bc := event.BusConfigFrom(config.New(nil))
		assert.Equal(t, event.DefaultBusConfig.CleanupThreshold, bc.CleanupThreshold)
		assert.Equal(t, event.DefaultBusConfig.ErrorHistory, bc.ErrorHistory)
		assert.Nil(t, bc.Metrics)
		assert.Nil(t, bc.Spans)
	})

	t.Run("overrides", func(t *testing.T) {
		bc := event.BusConfigFrom(config.New(map[string]any{
			"cleanup_threshold": "25",
			"error_history":     3,
			"metrics":           true,
			"tracing":           "true",
		}))
		assert.Equal(t, 25, bc.CleanupThreshold)
		assert.Equal(t, 3, bc.ErrorHistory)
		assert.NotNil(t, bc.Metrics)
		assert.NotNil(t, bc.Spans)
	})
}
