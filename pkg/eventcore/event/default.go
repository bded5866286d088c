package event

import (
	"context"
	"sync"

	"github.com/randalmurphal/eventcore/pkg/eventcore/config"
	"github.com/randalmurphal/eventcore/pkg/eventcore/observability"
)

// RegistrySource is the Source tag of events built by EmitRegistryEvent.
const RegistrySource = "registry"

var (
	defaultBus     *Bus
	defaultBusOnce sync.Once
)

// Default returns the process-wide bus. It is created on first use with
// DefaultBusConfig unless InitDefault ran first, and is never replaced.
func Default() *Bus {
	defaultBusOnce.Do(func() {
		defaultBus = NewBus(DefaultBusConfig)
	})
	return defaultBus
}

// InitDefault creates the process-wide bus with cfg. It is the single
// initialization point and reports false if the bus already existed, in
// which case cfg is ignored.
func InitDefault(cfg BusConfig) bool {
	created := false
	defaultBusOnce.Do(func() {
		defaultBus = NewBus(cfg)
		created = true
	})
	return created
}

// EmitRegistryEvent emits a registry event on the process-wide bus.
// See (*Bus).EmitRegistryEvent.
func EmitRegistryEvent(ctx context.Context, operation, itemName, dimension string, extra map[string]any) {
	Default().EmitRegistryEvent(ctx, operation, itemName, dimension, extra)
}

// EmitRegistryEvent builds a RegistryRecord named "registry."+operation,
// tagged with source "registry", and emits it. extra becomes the payload.
func (b *Bus) EmitRegistryEvent(ctx context.Context, operation, itemName, dimension string, extra map[string]any) {
	b.Emit(ctx, NewRegistryRecord(operation, itemName, dimension, extra, WithSource(RegistrySource)))
}

// BusConfigFrom builds a BusConfig from configuration values, starting
// from DefaultBusConfig.
//
// Recognized keys:
//   - cleanup_threshold (int)
//   - error_history (int)
//   - metrics (bool): record OpenTelemetry metrics
//   - tracing (bool): wrap emits in OpenTelemetry spans
func BusConfigFrom(cfg config.Config) BusConfig {
	bc := DefaultBusConfig
	bc.CleanupThreshold = cfg.Int("cleanup_threshold", bc.CleanupThreshold)
	bc.ErrorHistory = cfg.Int("error_history", bc.ErrorHistory)
	if cfg.Bool("metrics", false) {
		bc.Metrics = observability.NewMetricsRecorder()
	}
	if cfg.Bool("tracing", false) {
		bc.Spans = observability.NewSpanManager()
	}
	return bc
}
