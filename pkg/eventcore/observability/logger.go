// Package observability provides logging, metrics, and tracing helpers for
// the eventcore bus and its collaborators.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Handler failures are not logged here; the bus writes them to its
// ErrorOutput.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
// Returns a new logger with event_name and event_source fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "registry.register", "registry")
//	enriched.Info("observed") // includes event_name, event_source
func EnrichLogger(logger *slog.Logger, eventName, source string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event_name", eventName),
		slog.String("event_source", source),
	)
}

// LogRegistryOperation logs a registry change observed on the bus.
func LogRegistryOperation(logger *slog.Logger, operation, itemName, dimension string, payload map[string]any) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("operation", operation),
		slog.String("item", itemName),
		slog.String("dimension", dimension),
	}
	if len(payload) > 0 {
		attrs = append(attrs, slog.Any("payload", payload))
	}
	logger.Info("registry "+operation, attrs...)
}

// LogEvent logs a generic event observed on the bus.
func LogEvent(logger *slog.Logger, eventName string, payload map[string]any) {
	if logger == nil {
		return
	}
	logger.Debug("event observed",
		slog.String("event_name", eventName),
		slog.Int("payload_keys", len(payload)),
	)
}

// LogCleanup logs a subscription sweep.
func LogCleanup(logger *slog.Logger, reclaimed, removedNames int, forced bool) {
	if logger == nil {
		return
	}
	logger.Debug("subscription sweep",
		slog.Int("reclaimed_handlers", reclaimed),
		slog.Int("removed_event_types", removedNames),
		slog.Bool("forced", forced),
	)
}

// LogClear logs a full reset of the bus.
func LogClear(logger *slog.Logger, eventTypes int) {
	if logger == nil {
		return
	}
	logger.Debug("bus cleared",
		slog.Int("event_types", eventTypes),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... dispatch ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
