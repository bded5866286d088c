package event

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"weak"

	"github.com/randalmurphal/eventcore/pkg/eventcore/observability"
)

// BusConfig configures bus behavior.
type BusConfig struct {
	// CleanupThreshold is the number of emits between full sweeps of
	// dead subscriptions.
	// Default: 10
	CleanupThreshold int

	// ErrorHistory is how many recent handler failures are kept.
	// Default: 10
	ErrorHistory int

	// ErrorOutput receives a diagnostic line and stack trace for every
	// handler failure. It is written directly, never through a logger.
	// Default: os.Stderr
	ErrorOutput io.Writer

	// OnHandlerError is called after a failure has been recorded.
	// It runs on the emitting goroutine without any bus lock held.
	OnHandlerError func(rec ErrorRecord, err error)

	// Logger receives debug output about sweeps and resets. Optional.
	Logger *slog.Logger

	// Metrics records dispatch metrics.
	// Default: observability.NoopMetrics{}
	Metrics observability.MetricsRecorder

	// Spans wraps each emit in a trace span.
	// Default: observability.NoopSpanManager{}
	Spans observability.SpanManager
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	CleanupThreshold: 10,
	ErrorHistory:     10,
}

// Bus is an in-process, synchronous publish/subscribe bus.
//
// Handlers for one name run in registration order on the emitting
// goroutine. Emits are serialized: two goroutines never interleave their
// handler loops. The bus holds handlers weakly, see Handler.
type Bus struct {
	config BusConfig

	// dispatchMu serializes emits. It is not re-acquired by emits nested
	// inside a handler, see Emit.
	dispatchMu sync.Mutex

	// mu guards everything below. It is never held while a handler runs.
	mu          sync.Mutex
	subscribers map[string][]weak.Pointer[Handler]
	opCount     int
	failed      int64
	recent      []ErrorRecord

	// generation is bumped by Clear. An emit started under an older
	// generation does not write its outcome into the reset state.
	generation uint64

	outMu sync.Mutex
}

// NewBus creates a new bus.
func NewBus(config BusConfig) *Bus {
	if config.CleanupThreshold <= 0 {
		config.CleanupThreshold = DefaultBusConfig.CleanupThreshold
	}
	if config.ErrorHistory <= 0 {
		config.ErrorHistory = DefaultBusConfig.ErrorHistory
	}
	if config.ErrorOutput == nil {
		config.ErrorOutput = os.Stderr
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	if config.Spans == nil {
		config.Spans = observability.NoopSpanManager{}
	}

	return &Bus{
		config:      config,
		subscribers: make(map[string][]weak.Pointer[Handler]),
		recent:      make([]ErrorRecord, 0, config.ErrorHistory),
	}
}

// Subscribe registers h for events named name. Subscribing the same
// handler twice makes it fire twice. A nil handler is ignored.
func (b *Bus) Subscribe(name string, h *Handler) {
	if h == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[name] = append(b.subscribers[name], weak.Make(h))
}

// Unsubscribe removes every subscription of h under name. Subscriptions
// whose handler has already been collected are left for cleanup.
func (b *Bus) Unsubscribe(name string, h *Handler) {
	if h == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries, ok := b.subscribers[name]
	if !ok {
		return
	}

	kept := make([]weak.Pointer[Handler], 0, len(entries))
	for _, wp := range entries {
		if wp.Value() != h {
			kept = append(kept, wp)
		}
	}
	b.subscribers[name] = kept
}

// dispatchKey marks a context as belonging to an in-progress emit.
type dispatchKey struct{}

type dispatchFrame struct {
	bus    *Bus
	parent *dispatchFrame
}

func (b *Bus) dispatching(ctx context.Context) bool {
	frame, _ := ctx.Value(dispatchKey{}).(*dispatchFrame)
	for ; frame != nil; frame = frame.parent {
		if frame.bus == b {
			return true
		}
	}
	return false
}

// Emit dispatches evt to every live handler subscribed to evt.Name(),
// in registration order, and returns once all of them have run. Handler
// errors and panics are recorded and never returned.
//
// Handlers receive a context derived from ctx. A handler that emits again
// on the same bus must pass that context along; a nested Emit with it runs
// inline instead of waiting for the outer emit to finish.
//
// Emitting a name nobody ever subscribed to is a no-op.
func (b *Bus) Emit(ctx context.Context, evt Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !b.dispatching(ctx) {
		b.dispatchMu.Lock()
		defer b.dispatchMu.Unlock()

		parent, _ := ctx.Value(dispatchKey{}).(*dispatchFrame)
		ctx = context.WithValue(ctx, dispatchKey{}, &dispatchFrame{bus: b, parent: parent})
	}

	name := evt.Name()

	b.mu.Lock()
	entries, ok := b.subscribers[name]
	if !ok {
		b.mu.Unlock()
		return
	}
	live := make([]*Handler, 0, len(entries))
	for _, wp := range entries {
		if h := wp.Value(); h != nil {
			live = append(live, h)
		}
	}
	gen := b.generation
	b.mu.Unlock()

	done := observability.TimedOperation()
	spanCtx, span := b.config.Spans.StartEmitSpan(ctx, name, evt.Source(), evt.ID())
	for _, h := range live {
		b.invoke(spanCtx, evt, h, gen)
	}
	b.config.Spans.EndSpanWithError(span, nil)
	b.config.Metrics.RecordEmit(spanCtx, name, len(live), done())

	b.mu.Lock()
	if b.generation != gen {
		b.mu.Unlock()
		return
	}
	reclaimed := b.pruneLocked(name)
	b.opCount++
	swept, removed, sweep := 0, 0, false
	if b.opCount >= b.config.CleanupThreshold {
		swept, removed = b.sweepLocked()
		b.opCount = 0
		sweep = true
	}
	b.mu.Unlock()

	b.config.Metrics.RecordCleanup(ctx, reclaimed+swept)
	if sweep {
		observability.LogCleanup(b.config.Logger, swept, removed, false)
	}
}

// pruneLocked drops dead subscriptions under name and reports how many
// were dropped. The name's list is kept even when it ends up empty.
func (b *Bus) pruneLocked(name string) int {
	entries, ok := b.subscribers[name]
	if !ok {
		return 0
	}

	kept := make([]weak.Pointer[Handler], 0, len(entries))
	for _, wp := range entries {
		if wp.Value() != nil {
			kept = append(kept, wp)
		}
	}
	b.subscribers[name] = kept
	return len(entries) - len(kept)
}

// sweepLocked drops dead subscriptions under every name and deletes names
// left without live handlers.
func (b *Bus) sweepLocked() (reclaimed, removedNames int) {
	for name, entries := range b.subscribers {
		kept := make([]weak.Pointer[Handler], 0, len(entries))
		for _, wp := range entries {
			if wp.Value() != nil {
				kept = append(kept, wp)
			}
		}
		reclaimed += len(entries) - len(kept)

		if len(kept) == 0 {
			delete(b.subscribers, name)
			removedNames++
			continue
		}
		b.subscribers[name] = kept
	}
	return reclaimed, removedNames
}

// ForceCleanup sweeps all dead subscriptions now and restarts the
// emit count towards the next automatic sweep.
func (b *Bus) ForceCleanup() {
	b.mu.Lock()
	reclaimed, removed := b.sweepLocked()
	b.opCount = 0
	b.mu.Unlock()

	b.config.Metrics.RecordCleanup(context.Background(), reclaimed)
	observability.LogCleanup(b.config.Logger, reclaimed, removed, true)
}

// Clear removes all subscriptions and resets every counter and the error
// history. It exists so test suites can start from a clean bus.
func (b *Bus) Clear() {
	b.mu.Lock()
	eventTypes := len(b.subscribers)
	b.subscribers = make(map[string][]weak.Pointer[Handler])
	b.opCount = 0
	b.failed = 0
	b.recent = make([]ErrorRecord, 0, b.config.ErrorHistory)
	b.generation++
	b.mu.Unlock()

	observability.LogClear(b.config.Logger, eventTypes)
}

// MemoryStats summarizes the subscription table.
type MemoryStats struct {
	EventTypes     int `json:"event_types"`
	TotalHandlers  int `json:"total_handlers"`
	LiveHandlers   int `json:"live_handlers"`
	DeadHandlers   int `json:"dead_handlers"`
	OperationCount int `json:"operation_count"`
}

// MemoryStats reports subscription counts without modifying the table.
func (b *Bus) MemoryStats() MemoryStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := MemoryStats{
		EventTypes:     len(b.subscribers),
		OperationCount: b.opCount,
	}
	for _, entries := range b.subscribers {
		for _, wp := range entries {
			stats.TotalHandlers++
			if wp.Value() != nil {
				stats.LiveHandlers++
			} else {
				stats.DeadHandlers++
			}
		}
	}
	return stats
}
