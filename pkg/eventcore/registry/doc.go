// Package registry provides a generic thread-safe registry that announces
// its changes on an event bus.
//
// A Registry belongs to a dimension, the category of items it holds (for
// example "command" or "service"). Every mutation emits a registry event so
// that other subsystems, such as logging, can react without the registry
// knowing about them.
//
// # Basic Usage
//
//	commands := registry.New[string, Command]("command")
//	commands.Register("deploy", deployCmd) // emits registry.register
//	commands.Delete("deploy")              // emits registry.remove
//
// Registries publish on event.Default() unless given a bus:
//
//	bus := event.NewBus(event.DefaultBusConfig)
//	services := registry.New[string, *Service]("service", registry.WithBus(bus))
//
// # Events
//
//   - Register, RegisterMany: registry.register per key, payload
//     {"replaced": bool}
//   - GetOrCreate: registry.register only when the factory ran
//   - Delete: registry.remove, only if the key was present
//
// The item name of each event is the key formatted with fmt.Sprint.
// Events are emitted after the registry lock is released, so handlers may
// read the registry. Handlers that mutate a registry on the same bus use
// the Context variants (RegisterContext, RegisterManyContext,
// GetOrCreateContext, DeleteContext) with the context they were given.
//
// # Lazy Initialization
//
//	pools := registry.New[string, *Pool]("pool")
//	pool := pools.GetOrCreate("users_db", func() *Pool {
//	    return NewPool("users_db")
//	})
//
// GetOrCreate is atomic: the factory is called at most once per key, even
// under concurrent access.
package registry
