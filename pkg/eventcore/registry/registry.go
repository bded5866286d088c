package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/randalmurphal/eventcore/pkg/eventcore/event"
)

// Option configures a Registry.
type Option func(*options)

type options struct {
	bus *event.Bus
}

// WithBus publishes registry events on bus instead of event.Default().
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// Registry is a thread-safe registry for values indexed by key.
// It uses sync.RWMutex for read-heavy workloads.
//
// Every mutation is announced on an event bus as a registry event whose
// dimension is the registry's dimension and whose item name is the key
// formatted with fmt.Sprint.
//
// Mutations emit with a fresh context. A handler running on the same bus
// must use the Context variant of a mutation with its own context instead,
// or the emit waits on the dispatch it is part of.
type Registry[K comparable, V any] struct {
	dimension string
	bus       *event.Bus

	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty registry for the given dimension, e.g. "command"
// or "service".
func New[K comparable, V any](dimension string, opts ...Option) *Registry[K, V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[K, V]{
		dimension: dimension,
		bus:       o.bus,
		entries:   make(map[K]V),
	}
}

// Dimension returns the category name this registry announces its items under.
func (r *Registry[K, V]) Dimension() string {
	return r.dimension
}

// Register adds or updates a value in the registry and emits
// registry.register. The payload's "replaced" entry reports whether a
// previous value was overwritten.
//
// Register emits with a fresh context and must not be called from a
// handler on the registry's bus; use RegisterContext there.
func (r *Registry[K, V]) Register(key K, value V) {
	r.RegisterContext(context.Background(), key, value)
}

// RegisterContext is Register, emitting with ctx. A handler on the
// registry's bus passes the context it was given.
func (r *Registry[K, V]) RegisterContext(ctx context.Context, key K, value V) {
	r.mu.Lock()
	_, replaced := r.entries[key]
	r.entries[key] = value
	r.mu.Unlock()

	r.emit(ctx, event.OperationRegister, key, map[string]any{"replaced": replaced})
}

// RegisterMany adds multiple entries to the registry, emitting one
// registry.register per entry.
//
// RegisterMany emits with a fresh context and must not be called from a
// handler on the registry's bus; use RegisterManyContext there.
func (r *Registry[K, V]) RegisterMany(entries map[K]V) {
	r.RegisterManyContext(context.Background(), entries)
}

// RegisterManyContext is RegisterMany, emitting with ctx.
func (r *Registry[K, V]) RegisterManyContext(ctx context.Context, entries map[K]V) {
	replaced := make(map[K]bool, len(entries))

	r.mu.Lock()
	for k, v := range entries {
		_, replaced[k] = r.entries[k]
		r.entries[k] = v
	}
	r.mu.Unlock()

	for k := range entries {
		r.emit(ctx, event.OperationRegister, k, map[string]any{"replaced": replaced[k]})
	}
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// MustGet returns the value for a key, panicking if not found.
func (r *Registry[K, V]) MustGet(key K) V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	if !ok {
		panic(fmt.Sprintf("registry: %s %v not found", r.dimension, key))
	}
	return v
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Delete removes a key from the registry and emits registry.remove.
// Deleting a missing key emits nothing.
//
// Delete emits with a fresh context and must not be called from a
// handler on the registry's bus; use DeleteContext there.
func (r *Registry[K, V]) Delete(key K) {
	r.DeleteContext(context.Background(), key)
}

// DeleteContext is Delete, emitting with ctx.
func (r *Registry[K, V]) DeleteContext(ctx context.Context, key K) {
	r.mu.Lock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		r.emit(ctx, event.OperationRemove, key, nil)
	}
}

// Keys returns all keys in the registry.
// The order is not guaranteed.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range iterates over a snapshot of the registry. If fn returns false,
// iteration stops. Register and Delete may be called from fn.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	r.mu.RLock()
	snapshot := make(map[K]V, len(r.entries))
	for k, v := range r.entries {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// GetOrCreate returns the value for a key, creating it with the factory
// function if it doesn't exist. The factory is called at most once per
// key, even under concurrent access, and only a creation emits
// registry.register.
//
// GetOrCreate emits with a fresh context and must not be called from a
// handler on the registry's bus; use GetOrCreateContext there.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) V {
	return r.GetOrCreateContext(context.Background(), key, factory)
}

// GetOrCreateContext is GetOrCreate, emitting with ctx.
func (r *Registry[K, V]) GetOrCreateContext(ctx context.Context, key K, factory func() V) V {
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	if v, ok := r.entries[key]; ok {
		r.mu.Unlock()
		return v
	}
	v = factory()
	r.entries[key] = v
	r.mu.Unlock()

	r.emit(ctx, event.OperationRegister, key, map[string]any{"replaced": false})
	return v
}

// emit publishes a registry event. It must be called without r.mu held so
// that subscribers can read the registry.
func (r *Registry[K, V]) emit(ctx context.Context, operation string, key K, payload map[string]any) {
	bus := r.bus
	if bus == nil {
		bus = event.Default()
	}
	bus.EmitRegistryEvent(ctx, operation, fmt.Sprint(key), r.dimension, payload)
}
