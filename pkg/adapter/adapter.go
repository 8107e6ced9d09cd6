// Package adapter defines the lifecycle contract of a network adapter and
// the shared TCP machinery (BaseAdapter) adapters build on.
package adapter

import "context"

// Adapter is a network server managed by the start command.
//
// Serve blocks until ctx is cancelled or a fatal error occurs; on
// cancellation it stops accepting, drains in-flight connections within the
// shutdown timeout and returns nil. Stop may be called concurrently with
// Serve and more than once.
type Adapter interface {
	Serve(ctx context.Context) error
	Stop(ctx context.Context) error

	// Protocol is the name used in logs and metrics.
	Protocol() string

	// Port is the configured listen port.
	Port() int
}
