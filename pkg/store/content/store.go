// Package content defines the external storage port: the backend that holds
// payload bytes addressed by record identifier.
//
// Content stores know nothing about authorship or access levels. The gateway
// decides whether an operation may proceed and only then calls the store.
package content

import (
	"context"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// Store is the payload backend.
//
// Error Handling:
// Get returns an error wrapping ErrContentNotFound when nothing is stored
// under id. Delete of an absent id succeeds. Every other failure (I/O,
// network, non-success responses) is returned as a wrapped error and treated
// by callers as an external failure.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Get returns the payload stored under id.
	Get(ctx context.Context, id metadata.Identifier) ([]byte, error)

	// Set stores data under id, replacing any previous payload.
	Set(ctx context.Context, id metadata.Identifier, data []byte) error

	// Delete removes the payload stored under id.
	Delete(ctx context.Context, id metadata.Identifier) error

	// Healthcheck verifies the backend is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
