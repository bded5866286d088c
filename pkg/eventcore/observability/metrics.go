package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records bus metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEmit records one dispatch of an event to its live handlers.
	RecordEmit(ctx context.Context, eventName string, handlers int, duration time.Duration)

	// RecordHandlerError records a failed handler invocation.
	RecordHandlerError(ctx context.Context, eventName, handler, category string)

	// RecordCleanup records dead subscriptions reclaimed by a sweep or emit.
	RecordCleanup(ctx context.Context, reclaimed int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	emits           metric.Int64Counter
	emitLatency     metric.Float64Histogram
	handlerCalls    metric.Int64Counter
	handlerFailures metric.Int64Counter
	reclaimed       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventcore")

	emits, err := meter.Int64Counter("eventcore.emit.count",
		metric.WithDescription("Number of events dispatched to at least a subscription list"),
	)
	if err != nil {
		return nil, err
	}

	emitLatency, err := meter.Float64Histogram("eventcore.emit.latency_ms",
		metric.WithDescription("Time spent dispatching one event to all its handlers"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerCalls, err := meter.Int64Counter("eventcore.handler.calls",
		metric.WithDescription("Number of handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	handlerFailures, err := meter.Int64Counter("eventcore.handler.failures",
		metric.WithDescription("Number of handler invocations that returned an error or panicked"),
	)
	if err != nil {
		return nil, err
	}

	reclaimed, err := meter.Int64Counter("eventcore.subscriptions.reclaimed",
		metric.WithDescription("Number of dead subscriptions removed"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		emits:           emits,
		emitLatency:     emitLatency,
		handlerCalls:    handlerCalls,
		handlerFailures: handlerFailures,
		reclaimed:       reclaimed,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordEmit records an event dispatch.
func (m *otelMetrics) RecordEmit(ctx context.Context, eventName string, handlers int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("event_name", eventName))

	m.emits.Add(ctx, 1, attrs)
	m.emitLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if handlers > 0 {
		m.handlerCalls.Add(ctx, int64(handlers), attrs)
	}
}

// RecordHandlerError records a handler failure.
func (m *otelMetrics) RecordHandlerError(ctx context.Context, eventName, handler, category string) {
	m.handlerFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_name", eventName),
		attribute.String("handler", handler),
		attribute.String("category", category),
	))
}

// RecordCleanup records reclaimed subscriptions.
func (m *otelMetrics) RecordCleanup(ctx context.Context, reclaimed int) {
	if reclaimed <= 0 {
		return
	}
	m.reclaimed.Add(ctx, int64(reclaimed))
}
