// Package gateway implements the permissioned pointer-indirection layer.
//
// The Gateway owns no payload. For each identifier it consults an access
// record in a metadata.Store, decides with an access.Policy whether the
// caller may proceed, and only then forwards the call to a content.Store.
//
// Operation Ordering:
// Within one call the metadata check always precedes the backend call, which
// always precedes the metadata mutation. A failed backend call therefore
// never leaves a record created or removed.
//
// Thread Safety:
// All operations are serialized by a single gateway-wide mutex held for the
// whole call, backend I/O included. This is the global serialization the
// record lifecycle relies on: no two mutations of the metadata store ever
// interleave.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/events"
	"github.com/Lawliet-Chan/offchain-storage/pkg/metrics"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// Config wires a Gateway to its collaborators.
type Config struct {
	// Metadata holds the access records (required)
	Metadata metadata.Store

	// Content holds the payloads (required)
	Content content.Store

	// Notifier receives DataRetrieved events (default: events.Noop)
	Notifier events.Notifier

	// Policy sets the required level per operation and create-on-write.
	// Nil selects access.StrictPolicy(); any other value is used as given.
	Policy *access.Policy

	// Metrics records operation outcomes (default: no-op)
	Metrics metrics.GatewayMetrics
}

// Gateway gates read, write and delete of external payloads.
type Gateway struct {
	mu sync.Mutex

	meta     metadata.Store
	content  content.Store
	notifier events.Notifier
	policy   access.Policy
	metrics  metrics.GatewayMetrics
}

// New validates cfg and returns a Gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.Metadata == nil {
		return nil, fmt.Errorf("gateway: metadata store is required")
	}
	if cfg.Content == nil {
		return nil, fmt.Errorf("gateway: content store is required")
	}

	policy := access.StrictPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = events.Noop{}
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoopGatewayMetrics()
	}

	return &Gateway{
		meta:     cfg.Metadata,
		content:  cfg.Content,
		notifier: notifier,
		policy:   policy,
		metrics:  m,
	}, nil
}

// Policy returns the active policy.
func (g *Gateway) Policy() access.Policy {
	return g.policy
}

// Healthcheck checks both stores.
func (g *Gateway) Healthcheck(ctx context.Context) error {
	if err := g.meta.Healthcheck(ctx); err != nil {
		return fmt.Errorf("metadata store: %w", err)
	}
	if err := g.content.Healthcheck(ctx); err != nil {
		return fmt.Errorf("content store: %w", err)
	}
	return nil
}

// observe records metrics and a debug line for a finished operation.
func (g *Gateway) observe(op string, caller access.Identity, id metadata.Identifier, start time.Time, err error) {
	outcome := Outcome(err)
	g.metrics.RecordOperation(op, outcome, time.Since(start))

	switch outcome {
	case "ok":
		logger.Debug("%s %s by %q: ok (%s)", op, id, caller, time.Since(start))
	case "external_error", "store_error", "notify_error":
		logger.Warn("%s %s by %q: %v", op, id, caller, err)
	default:
		logger.Debug("%s %s by %q: %s", op, id, caller, outcome)
	}
}

// lookup loads the record for id, failing with ErrNoSuchRecord when absent.
// Must be called with g.mu held.
func (g *Gateway) lookup(ctx context.Context, id metadata.Identifier) (access.Record, error) {
	exists, err := g.meta.Exists(ctx, id)
	if err != nil {
		return access.Record{}, storeFailure(err)
	}
	if !exists {
		return access.Record{}, ErrNoSuchRecord
	}

	rec, err := g.meta.Get(ctx, id)
	if err != nil {
		return access.Record{}, storeFailure(err)
	}
	return rec, nil
}

func validateID(id metadata.Identifier) error {
	if len(id) == 0 {
		return ErrInvalidIdentifier
	}
	return nil
}
