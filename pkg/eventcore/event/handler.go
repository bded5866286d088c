package event

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
)

// HandlerFunc processes an event. A returned error (or a panic) is recorded
// by the bus and never reaches the emitter or other handlers.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handler is a subscribable callback.
//
// The bus only holds a weak reference to a Handler. Whoever subscribes it
// must keep the *Handler reachable for as long as it should receive events;
// once nothing else references it, the garbage collector may reclaim it and
// the bus drops the subscription on its own.
type Handler struct {
	name string
	fn   HandlerFunc
}

// NewHandler wraps fn as a Handler. The name identifies it in error records;
// if empty, the function's symbol name is used.
func NewHandler(name string, fn HandlerFunc) *Handler {
	if fn == nil {
		panic("event: nil HandlerFunc")
	}
	return &Handler{name: name, fn: fn}
}

// Name returns the handler identifier used in diagnostics.
func (h *Handler) Name() string {
	if h.name != "" {
		return h.name
	}
	if f := runtime.FuncForPC(reflect.ValueOf(h.fn).Pointer()); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("handler@%p", h)
}

// Handle invokes the handler directly, without any isolation.
func (h *Handler) Handle(ctx context.Context, evt Event) error {
	return h.fn(ctx, evt)
}
