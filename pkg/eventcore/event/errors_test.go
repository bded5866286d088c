package event_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/randalmurphal/eventcore/pkg/eventcore/event"
)

// emitSpanKey marks a context returned by fakeSpans.StartEmitSpan.
type emitSpanKey struct{}

// fakeMetrics records calls made by the bus.
type fakeMetrics struct {
	mu            sync.Mutex
	emits         []string
	handlerCounts []int
	emitSpans     []any
	failures      []string
	reclaimed     int
}

func (m *fakeMetrics) RecordEmit(ctx context.Context, eventName string, handlers int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emits = append(m.emits, eventName)
	m.handlerCounts = append(m.handlerCounts, handlers)
	m.emitSpans = append(m.emitSpans, ctx.Value(emitSpanKey{}))
}

func (m *fakeMetrics) RecordHandlerError(_ context.Context, eventName, handler, category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, eventName+"/"+handler+"/"+category)
}

func (m *fakeMetrics) RecordCleanup(_ context.Context, reclaimed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reclaimed += reclaimed
}

// fakeSpans records span lifecycle calls made by the bus.
type fakeSpans struct {
	mu      sync.Mutex
	started []string
	ended   int
	events  []string
}

func (s *fakeSpans) StartEmitSpan(ctx context.Context, eventName, source, eventID string) (context.Context, trace.Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, eventName)
	return context.WithValue(ctx, emitSpanKey{}, eventName), noop.Span{}
}

func (s *fakeSpans) EndSpanWithError(trace.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended++
}

func (s *fakeSpans) AddSpanEvent(_ context.Context, name string, attrs ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range attrs {
		if a.Key == "handler" {
			name += ":" + a.Value.AsString()
		}
	}
	s.events = append(s.events, name)
}

func failingHandler(msg string) *event.Handler {
	return event.NewHandler(msg, func(context.Context, event.Event) error {
		return errors.New(msg)
	})
}

func TestErrorStats_RingKeepsMostRecent(t *testing.T) {
	bus := newTestBus(event.BusConfig{})

	handlers := make([]*event.Handler, 12)
	for i := range handlers {
		handlers[i] = failingHandler(fmt.Sprintf("fail-%d", i))
		bus.Subscribe("ring", handlers[i])
	}
	defer runtime.KeepAlive(handlers)

	bus.Emit(context.Background(), event.New("ring", nil))

	stats := bus.ErrorStats()
	assert.Equal(t, int64(12), stats.FailedHandlerCount)
	require.Len(t, stats.RecentErrors, 10)
	for i, rec := range stats.RecentErrors {
		assert.Equal(t, fmt.Sprintf("fail-%d", i+2), rec.Message)
	}
}

func TestErrorStats_CustomHistory(t *testing.T) {
	bus := newTestBus(event.BusConfig{ErrorHistory: 2})

	handlers := []*event.Handler{failingHandler("a"), failingHandler("b"), failingHandler("c")}
	defer runtime.KeepAlive(handlers)
	for _, h := range handlers {
		bus.Subscribe("ring", h)
	}

	bus.Emit(context.Background(), event.New("ring", nil))
	bus.Emit(context.Background(), event.New("ring", nil))

	stats := bus.ErrorStats()
	assert.Equal(t, int64(6), stats.FailedHandlerCount)
	require.Len(t, stats.RecentErrors, 2)
	assert.Equal(t, "b", stats.RecentErrors[0].Message)
	assert.Equal(t, "c", stats.RecentErrors[1].Message)
}

func TestErrorStats_ReturnsCopy(t *testing.T) {
	bus := newTestBus(event.BusConfig{})
	h := failingHandler("boom")
	defer runtime.KeepAlive(h)
	bus.Subscribe("x", h)
	bus.Emit(context.Background(), event.New("x", nil))

	stats := bus.ErrorStats()
	stats.RecentErrors[0].Message = "changed"

	assert.Equal(t, "boom", bus.ErrorStats().RecentErrors[0].Message)
}

func TestErrorRecordFields(t *testing.T) {
	bus := newTestBus(event.BusConfig{})
	h := failingHandler("disk full")
	defer runtime.KeepAlive(h)
	bus.Subscribe("db.migrate", h)

	evt := event.New("db.migrate", nil, event.WithEventID("evt-1"), event.WithSource("migrator"))
	before := time.Now()
	bus.Emit(context.Background(), evt)

	stats := bus.ErrorStats()
	require.Len(t, stats.RecentErrors, 1)
	rec := stats.RecentErrors[0]
	assert.Equal(t, "db.migrate", rec.EventName)
	assert.Equal(t, "evt-1", rec.EventID)
	assert.Equal(t, "migrator", rec.EventSource)
	assert.Equal(t, "disk full", rec.Handler)
	assert.Equal(t, "errors.errorString", rec.Kind)
	assert.Equal(t, "handler", rec.Category)
	assert.Equal(t, "disk full", rec.Message)
	assert.False(t, rec.Time.Before(before))
}

func TestErrorRecord_CanceledCategory(t *testing.T) {
	bus := newTestBus(event.BusConfig{})
	h := event.NewHandler("waiter", func(ctx context.Context, evt event.Event) error {
		return ctx.Err()
	})
	defer runtime.KeepAlive(h)
	bus.Subscribe("wait", h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Emit(ctx, event.New("wait", nil))

	stats := bus.ErrorStats()
	require.Len(t, stats.RecentErrors, 1)
	assert.Equal(t, "canceled", stats.RecentErrors[0].Category)
}

func TestDiagnosticOutput(t *testing.T) {
	var out bytes.Buffer
	bus := event.NewBus(event.BusConfig{ErrorOutput: &out})

	h := failingHandler("boom")
	defer runtime.KeepAlive(h)
	bus.Subscribe("diag", h)
	bus.Emit(context.Background(), event.New("diag", nil))

	text := out.String()
	assert.Contains(t, text, `eventcore: handler boom failed for event "diag": errors.errorString: boom`)
	assert.Contains(t, text, "goroutine", "stack trace follows the diagnostic line")
}

func TestDiagnosticOutput_PanicStack(t *testing.T) {
	var out bytes.Buffer
	bus := event.NewBus(event.BusConfig{ErrorOutput: &out})

	h := event.NewHandler("explode", func(context.Context, event.Event) error {
		panic("kaboom")
	})
	defer runtime.KeepAlive(h)
	bus.Subscribe("diag", h)
	bus.Emit(context.Background(), event.New("diag", nil))

	text := out.String()
	assert.Contains(t, text, "eventcore: handler explode failed")
	assert.Contains(t, text, "panic: kaboom")
	assert.True(t, strings.Contains(text, "goroutine"))
}

func TestOnHandlerError(t *testing.T) {
	var got []event.ErrorRecord
	var gotErrs []error
	bus := newTestBus(event.BusConfig{
		OnHandlerError: func(rec event.ErrorRecord, err error) {
			got = append(got, rec)
			gotErrs = append(gotErrs, err)
		},
	})

	sentinel := errors.New("sentinel")
	h := event.NewHandler("hooked", func(context.Context, event.Event) error {
		return fmt.Errorf("wrapped: %w", sentinel)
	})
	defer runtime.KeepAlive(h)
	bus.Subscribe("hook", h)
	bus.Emit(context.Background(), event.New("hook", nil))

	require.Len(t, got, 1)
	assert.Equal(t, "hooked", got[0].Handler)
	assert.ErrorIs(t, gotErrs[0], sentinel)
}

func TestOnHandlerError_HookPanicIsContained(t *testing.T) {
	var out bytes.Buffer
	bus := event.NewBus(event.BusConfig{
		ErrorOutput: &out,
		OnHandlerError: func(event.ErrorRecord, error) {
			panic("hook broke")
		},
	})

	rec := &orderRecorder{}
	failing := failingHandler("boom")
	after := rec.handler("after")
	defer runtime.KeepAlive([]*event.Handler{failing, after})
	bus.Subscribe("hook", failing)
	bus.Subscribe("hook", after)

	assert.NotPanics(t, func() {
		bus.Emit(context.Background(), event.New("hook", nil))
	})

	assert.Equal(t, []string{"after"}, rec.get())
	assert.Equal(t, int64(1), bus.ErrorStats().FailedHandlerCount)
	assert.Contains(t, out.String(), "eventcore: error hook panicked: hook broke")
}

func TestMetricsAndSpans(t *testing.T) {
	metrics := &fakeMetrics{}
	spans := &fakeSpans{}
	bus := newTestBus(event.BusConfig{Metrics: metrics, Spans: spans})

	ok := event.NewHandler("ok", namedHandlerFunc)
	bad := failingHandler("bad")
	defer runtime.KeepAlive([]*event.Handler{ok, bad})
	bus.Subscribe("m", ok)
	bus.Subscribe("m", bad)

	bus.Emit(context.Background(), event.New("m", nil))
	bus.Emit(context.Background(), event.New("ignored", nil))

	assert.Equal(t, []string{"m"}, metrics.emits)
	assert.Equal(t, []int{2}, metrics.handlerCounts)
	assert.Equal(t, []string{"m/bad/handler"}, metrics.failures)

	assert.Equal(t, []string{"m"}, spans.started)
	assert.Equal(t, 1, spans.ended)
	assert.Equal(t, []string{"handler.failed:bad"}, spans.events)
}

func TestMetricsRecordReclaimed(t *testing.T) {
	metrics := &fakeMetrics{}
	bus := newTestBus(event.BusConfig{Metrics: metrics, CleanupThreshold: 100})

	var calls atomic.Int32
	subscribeTransient(bus, "r", &calls)
	subscribeTransient(bus, "r", &calls)
	collectGarbage()

	bus.Emit(context.Background(), event.New("r", nil))
	assert.Equal(t, 2, metrics.reclaimed)
}

func TestEmit_MetricsRecordedUnderEmitSpan(t *testing.T) {
	metrics := &fakeMetrics{}
	spans := &fakeSpans{}
	bus := newTestBus(event.BusConfig{Metrics: metrics, Spans: spans})

	var seen any
	h := event.NewHandler("h", func(ctx context.Context, evt event.Event) error {
		seen = ctx.Value(emitSpanKey{})
		return nil
	})
	defer runtime.KeepAlive(h)
	bus.Subscribe("traced", h)

	bus.Emit(context.Background(), event.New("traced", nil))

	assert.Equal(t, "traced", seen)
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, []any{"traced"}, metrics.emitSpans)
}
