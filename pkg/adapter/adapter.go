// Package adapter defines the contract between the server and the
// transports that expose the gateway to remote callers.
package adapter

import (
	"context"

	"github.com/Lawliet-Chan/offchain-storage/pkg/gateway"
)

// Adapter represents a transport that serves gateway operations, managed by
// the server.
//
// Lifecycle:
//  1. Creation: Adapter is created with transport-specific configuration
//  2. Gateway injection: SetGateway() provides the shared gateway
//  3. Startup: Serve() starts the listener and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetGateway() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the listener and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown
	// and return nil or context.Canceled. If Serve returns before context
	// cancellation, the server treats it as fatal and stops all other
	// adapters.
	Serve(ctx context.Context) error

	// SetGateway injects the shared gateway.
	//
	// Called exactly once by the server before Serve().
	SetGateway(gw *gateway.Gateway)

	// Stop initiates graceful shutdown.
	//
	// Implementations must be idempotent, safe to call concurrently with
	// Serve(), and respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the transport name for logging and metrics ("HTTP").
	Protocol() string

	// Port returns the TCP port the adapter listens on, or 0 if not yet known.
	Port() int
}
