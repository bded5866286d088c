// Package event provides an in-process, synchronous publish/subscribe bus.
//
// # Overview
//
// The bus decouples producers from observers that would otherwise import
// each other. A component registry emits "registry.register" and
// "registry.remove" events; a logger subscribes to them. Neither package
// depends on the other, only on this one.
//
//   - Event and Record: immutable "what happened" values
//   - RegistryRecord: an Event whose name derives from its operation
//   - Bus: subscribe, emit, unsubscribe, cleanup, statistics
//   - Default and EmitRegistryEvent: the process-wide bus
//
// # Events
//
//	evt := event.New("db.migrate", map[string]any{"rows": 3},
//	    event.WithSource("migrator"))
//
//	reg := event.NewRegistryRecord("remove", "worker_pool", "command", nil)
//	// reg.Name() == "registry.remove"
//
// # Subscribing
//
// The bus holds handlers weakly. Keep the *Handler reachable for as long as
// it should receive events; once it is garbage, the bus forgets it without
// an explicit Unsubscribe:
//
//	h := event.NewHandler("audit", func(ctx context.Context, evt event.Event) error {
//	    rows, _ := evt.Value("rows")
//	    return record(rows)
//	})
//	bus.Subscribe("db.migrate", h)
//
// # Emitting
//
// Emit runs every live handler for the event's name, in registration order,
// before returning. A failing handler (error or panic) does not stop the
// others and is never reported to the emitter:
//
//	bus.Emit(ctx, evt)
//	stats := bus.ErrorStats() // failures, if you care
//
// Failures are written to BusConfig.ErrorOutput (stderr by default) with a
// stack trace and kept in a short history. They never go through slog,
// because the logging side of a program is typically itself a subscriber.
//
// # Concurrency
//
// All methods are safe for concurrent use. Emits are serialized. A handler
// may call back into the bus: Subscribe, Unsubscribe, ForceCleanup, Clear
// and the stats methods always work, and a nested Emit works when it is
// given the context the handler received.
//
// # Cleanup
//
// Dead subscriptions are dropped for the emitted name on every Emit, and
// from the whole table every BusConfig.CleanupThreshold emits or on
// ForceCleanup. Names left without live handlers are removed by the sweep.
package event
