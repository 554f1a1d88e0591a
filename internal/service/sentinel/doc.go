// Package sentinel wires the panel-sentinel process.
//
// Run loads the configuration, opens the store, the arm-state cache, the
// live system and the alert sinks, and then runs the poll loop next to the
// operator gRPC API until the context is canceled.
package sentinel
