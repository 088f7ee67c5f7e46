// Package metadata defines the identifier-to-record store that backs the
// gateway's access decisions.
//
// The store holds only access-control metadata (author and level) per
// identifier. Payload bytes never pass through it; they live in a content
// store addressed by the same identifier.
package metadata

import (
	"context"
	"encoding/hex"
	"unicode/utf8"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
)

// Identifier addresses one record and the payload behind it.
//
// It is an opaque byte string: it need not be valid UTF-8 and is compared
// byte-for-byte. The string representation makes it usable as a map key.
type Identifier string

// IdentifierFromBytes copies b into an Identifier.
func IdentifierFromBytes(b []byte) Identifier {
	return Identifier(b)
}

// Bytes returns a fresh copy of the raw identifier bytes.
func (id Identifier) Bytes() []byte {
	return []byte(id)
}

// Hex returns the hex encoding of the identifier, safe for logs and URLs.
func (id Identifier) Hex() string {
	return hex.EncodeToString([]byte(id))
}

// String renders printable identifiers as-is and everything else as hex.
func (id Identifier) String() string {
	for _, r := range string(id) {
		if r < 0x20 || r == 0x7f || r == utf8.RuneError {
			return "0x" + id.Hex()
		}
	}
	return string(id)
}

// Store maps identifiers to access records.
//
// Mutations are single-record and each is applied atomically. Callers (the
// gateway) serialize calls, so implementations only need to be safe for
// concurrent use, not to provide cross-call isolation.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Exists reports whether a record is stored for id.
	Exists(ctx context.Context, id Identifier) (bool, error)

	// Get returns the record for id.
	//
	// When no record exists the default record (access.DefaultRecord) is
	// returned with a nil error. Callers that need to distinguish must call
	// Exists first.
	Get(ctx context.Context, id Identifier) (access.Record, error)

	// Insert creates or overwrites the record for id.
	Insert(ctx context.Context, id Identifier, rec access.Record) error

	// Remove deletes the record for id entirely. Returns ErrRecordNotFound
	// if no record exists.
	Remove(ctx context.Context, id Identifier) error

	// Healthcheck verifies the store is operational.
	Healthcheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
