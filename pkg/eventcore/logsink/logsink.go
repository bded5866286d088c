// Package logsink writes events observed on a bus to a structured logger.
//
// It is the logging side of the decoupling the bus provides: registries
// announce changes without importing any logging code, and a Sink turns
// those announcements into log lines.
package logsink

import (
	"context"
	"log/slog"
	"slices"

	"github.com/randalmurphal/eventcore/pkg/eventcore/event"
	"github.com/randalmurphal/eventcore/pkg/eventcore/observability"
)

// DefaultNames are the event names a Sink subscribes to when none are given.
var DefaultNames = []string{
	event.RegistryNamePrefix + event.OperationRegister,
	event.RegistryNamePrefix + event.OperationRemove,
}

// Sink logs the events it is subscribed to.
//
// The bus holds the sink's handler weakly: keep the *Sink reachable for as
// long as events should be logged.
type Sink struct {
	bus     *event.Bus
	logger  *slog.Logger
	names   []string
	handler *event.Handler
}

// Attach subscribes a new Sink to names on bus, or to DefaultNames if no
// names are given. A nil bus means event.Default(); a nil logger means
// slog.Default().
func Attach(bus *event.Bus, logger *slog.Logger, names ...string) *Sink {
	if bus == nil {
		bus = event.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(names) == 0 {
		names = DefaultNames
	}

	s := &Sink{
		bus:    bus,
		logger: logger,
		names:  slices.Clone(names),
	}
	s.handler = event.NewHandler("logsink", s.handle)
	for _, name := range s.names {
		bus.Subscribe(name, s.handler)
	}
	return s
}

// Names returns the event names the sink is subscribed to.
func (s *Sink) Names() []string {
	return slices.Clone(s.names)
}

// Detach unsubscribes the sink from every name it was attached to.
func (s *Sink) Detach() {
	for _, name := range s.names {
		s.bus.Unsubscribe(name, s.handler)
	}
}

func (s *Sink) handle(_ context.Context, evt event.Event) error {
	logger := observability.EnrichLogger(s.logger, evt.Name(), evt.Source())

	if rec, ok := evt.(*event.RegistryRecord); ok {
		observability.LogRegistryOperation(logger, rec.Operation(), rec.ItemName(), rec.Dimension(), rec.Payload())
		return nil
	}
	observability.LogEvent(logger, evt.Name(), evt.Payload())
	return nil
}
