package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"

	ecerrors "github.com/randalmurphal/eventcore/pkg/eventcore/errors"
)

// ErrorRecord describes one failed handler invocation.
type ErrorRecord struct {
	EventName   string    `json:"event_name"`
	EventID     string    `json:"event_id"`
	EventSource string    `json:"event_source,omitempty"`
	Handler     string    `json:"handler"`
	Kind        string    `json:"error_kind"`
	Category    string    `json:"category"`
	Message     string    `json:"error_message"`
	Time        time.Time `json:"time"`
}

// ErrorStats reports handler failures.
type ErrorStats struct {
	// FailedHandlerCount is the number of failures since creation or
	// the last Clear.
	FailedHandlerCount int64 `json:"failed_handler_count"`

	// RecentErrors holds the most recent failures, oldest first.
	RecentErrors []ErrorRecord `json:"recent_errors"`
}

// ErrorStats returns the failure count and a copy of the recent failures.
func (b *Bus) ErrorStats() ErrorStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	recent := make([]ErrorRecord, len(b.recent))
	copy(recent, b.recent)
	return ErrorStats{
		FailedHandlerCount: b.failed,
		RecentErrors:       recent,
	}
}

// invoke runs one handler, isolating its error or panic.
func (b *Bus) invoke(ctx context.Context, evt Event, h *Handler, gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			b.handleHandlerError(ctx, evt, h, &ecerrors.PanicError{Value: r, Stack: debug.Stack()}, gen)
		}
	}()

	if err := h.fn(ctx, evt); err != nil {
		b.handleHandlerError(ctx, evt, h, err, gen)
	}
}

// handleHandlerError records a failure and reports it on ErrorOutput.
// It must not log through slog: loggers subscribe to this bus. A failure
// from an emit that started before the last Clear is reported but not
// counted.
func (b *Bus) handleHandlerError(ctx context.Context, evt Event, h *Handler, err error, gen uint64) {
	rec := ErrorRecord{
		EventName:   evt.Name(),
		EventID:     evt.ID(),
		EventSource: evt.Source(),
		Handler:     h.Name(),
		Kind:        ecerrors.Kind(err),
		Category:    ecerrors.Categorize(err).String(),
		Message:     err.Error(),
		Time:        time.Now(),
	}

	b.mu.Lock()
	if b.generation == gen {
		b.failed++
		if len(b.recent) >= b.config.ErrorHistory {
			n := copy(b.recent, b.recent[len(b.recent)-b.config.ErrorHistory+1:])
			b.recent = b.recent[:n]
		}
		b.recent = append(b.recent, rec)
	}
	b.mu.Unlock()

	stack := debug.Stack()
	if pe, ok := err.(*ecerrors.PanicError); ok {
		stack = pe.Stack
	}
	b.writeDiagnostic(rec, stack)

	b.config.Metrics.RecordHandlerError(ctx, rec.EventName, rec.Handler, rec.Category)
	b.config.Spans.AddSpanEvent(ctx, "handler.failed",
		attribute.String("handler", rec.Handler),
		attribute.String("error.kind", rec.Kind),
		attribute.String("error.message", rec.Message),
	)

	if b.config.OnHandlerError != nil {
		b.notify(rec, err)
	}
}

// notify runs the OnHandlerError hook. A panicking hook is reported like a
// handler failure on ErrorOutput but is not counted.
func (b *Bus) notify(rec ErrorRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.outMu.Lock()
			defer b.outMu.Unlock()
			fmt.Fprintf(b.config.ErrorOutput, "eventcore: error hook panicked: %v\n%s", r, debug.Stack())
		}
	}()
	b.config.OnHandlerError(rec, err)
}

func (b *Bus) writeDiagnostic(rec ErrorRecord, stack []byte) {
	b.outMu.Lock()
	defer b.outMu.Unlock()

	fmt.Fprintf(b.config.ErrorOutput, "eventcore: handler %s failed for event %q: %s: %s\n",
		rec.Handler, rec.EventName, rec.Kind, rec.Message)
	b.config.ErrorOutput.Write(stack)
}
