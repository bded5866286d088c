package event

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// RegistryNamePrefix prefixes the derived name of every registry event.
const RegistryNamePrefix = "registry."

// Registry operations emitted by component registries.
const (
	OperationRegister = "register"
	OperationRemove   = "remove"
)

// Event describes something that happened. Events are immutable once
// created; the bus never retains them beyond a single Emit call.
type Event interface {
	// ID is a unique identifier, for diagnostics and tracing.
	ID() string

	// Name is the dispatch key. It must be non-empty.
	Name() string

	// Source is a free-text origin tag, for diagnostics only.
	Source() string

	// Timestamp is when the event was created.
	Timestamp() time.Time

	// Payload returns a copy of the event's structured data.
	Payload() map[string]any

	// Value returns a single payload entry.
	Value(key string) (any, bool)
}

// Record is the standard Event implementation.
type Record struct {
	id        string
	name      string
	source    string
	timestamp time.Time
	payload   map[string]any
}

// Compile-time interface checks.
var (
	_ Event = (*Record)(nil)
	_ Event = (*RegistryRecord)(nil)
)

// ID returns the unique event identifier.
func (r *Record) ID() string {
	return r.id
}

// Name returns the dispatch key.
func (r *Record) Name() string {
	return r.name
}

// Source returns the origin tag, or "" if none was given.
func (r *Record) Source() string {
	return r.source
}

// Timestamp returns when the event was created.
func (r *Record) Timestamp() time.Time {
	return r.timestamp
}

// Payload returns a copy of the payload. It is never nil.
func (r *Record) Payload() map[string]any {
	return maps.Clone(r.payload)
}

// Value returns the payload entry for key.
func (r *Record) Value(key string) (any, bool) {
	v, ok := r.payload[key]
	return v, ok
}

// Option configures event creation.
type Option func(*recordConfig)

type recordConfig struct {
	id        string
	name      string
	source    string
	timestamp time.Time
}

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) Option {
	return func(cfg *recordConfig) {
		cfg.id = id
	}
}

// WithSource sets the origin tag.
func WithSource(source string) Option {
	return func(cfg *recordConfig) {
		cfg.source = source
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(cfg *recordConfig) {
		cfg.timestamp = t
	}
}

// WithName overrides the derived name of a RegistryRecord.
// For New it replaces the name argument.
func WithName(name string) Option {
	return func(cfg *recordConfig) {
		cfg.name = name
	}
}

func newRecord(name string, payload map[string]any, opts []Option) Record {
	cfg := &recordConfig{name: name}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.New().String()
	}
	if cfg.timestamp.IsZero() {
		cfg.timestamp = time.Now()
	}

	p := maps.Clone(payload)
	if p == nil {
		p = make(map[string]any)
	}

	return Record{
		id:        cfg.id,
		name:      cfg.name,
		source:    cfg.source,
		timestamp: cfg.timestamp,
		payload:   p,
	}
}

// New creates an event with the given name and payload.
// The payload map is copied; a nil payload becomes an empty one.
func New(name string, payload map[string]any, opts ...Option) *Record {
	r := newRecord(name, payload, opts)
	return &r
}

// RegistryRecord is an Event describing a change in a component registry.
type RegistryRecord struct {
	Record

	operation string
	itemName  string
	dimension string
}

// NewRegistryRecord creates a registry event. Unless WithName is given a
// non-empty name, the name is derived once, here, as "registry." + operation.
func NewRegistryRecord(operation, itemName, dimension string, payload map[string]any, opts ...Option) *RegistryRecord {
	rec := newRecord(RegistryNamePrefix+operation, payload, opts)
	if rec.name == "" {
		rec.name = RegistryNamePrefix + operation
	}
	return &RegistryRecord{
		Record:    rec,
		operation: operation,
		itemName:  itemName,
		dimension: dimension,
	}
}

// Operation returns the registry operation, e.g. "register" or "remove".
func (r *RegistryRecord) Operation() string {
	return r.operation
}

// ItemName returns the name of the affected registry item.
func (r *RegistryRecord) ItemName() string {
	return r.itemName
}

// Dimension returns the registry the item belongs to, e.g. "command".
func (r *RegistryRecord) Dimension() string {
	return r.dimension
}
