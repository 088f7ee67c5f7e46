package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/events"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// Read fetches the payload behind id on behalf of caller.
//
// Steps:
//  1. No record: ErrNoSuchRecord.
//  2. Policy denies OpRead: ErrPermissionDenied.
//  3. Content.Get; failure: ErrExternal.
//  4. Exactly one DataRetrieved event carrying the payload is delivered to
//     the notifier; delivery failure: ErrNotify.
//
// The returned bytes equal the event payload. Read never mutates metadata.
func (g *Gateway) Read(ctx context.Context, caller access.Identity, id metadata.Identifier) (data []byte, err error) {
	const op = "read"
	start := time.Now()
	defer func() { g.observe(op, caller, id, start, err) }()

	if err := validateID(id); err != nil {
		return nil, opError(op, id, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.lookup(ctx, id)
	if err != nil {
		return nil, opError(op, id, err)
	}

	if !g.policy.Allows(caller, rec, access.OpRead) {
		return nil, opError(op, id, ErrPermissionDenied)
	}

	data, err = g.content.Get(ctx, id)
	if err != nil {
		return nil, opError(op, id, external(err))
	}

	ev := events.NewDataRetrieved(id, caller, data)
	notifyErr := g.notifier.Notify(ctx, ev)
	g.metrics.RecordNotification(notifyErr)
	if notifyErr != nil {
		logger.Error("notification %s for %s lost: %v", ev.ID, id, notifyErr)
		return nil, opError(op, id, notifyFailure(notifyErr))
	}

	g.metrics.RecordPayloadBytes(op, len(data))
	return data, nil
}

// Write stores data behind id on behalf of caller.
//
// Existing record: the policy must allow OpWrite; the record is re-inserted
// unchanged (write never alters author or access).
//
// Missing record: with CreateOnWrite the record {caller, DefaultAccess} is
// created after the payload is stored; otherwise ErrNoSuchRecord.
//
// A backend failure returns ErrExternal and leaves metadata untouched.
func (g *Gateway) Write(ctx context.Context, caller access.Identity, id metadata.Identifier, data []byte) (err error) {
	const op = "write"
	start := time.Now()
	defer func() { g.observe(op, caller, id, start, err) }()

	if err := validateID(id); err != nil {
		return opError(op, id, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// ========================================================================
	// Step 1: Authorize against the existing record, or decide to create one
	// ========================================================================

	rec, err := g.lookup(ctx, id)
	created := false
	switch {
	case err == nil:
		if !g.policy.Allows(caller, rec, access.OpWrite) {
			return opError(op, id, ErrPermissionDenied)
		}
	case errors.Is(err, ErrNoSuchRecord) && g.policy.CreateOnWrite:
		rec = access.Record{Author: caller, Access: g.policy.DefaultAccess}
		created = true
	default:
		return opError(op, id, err)
	}

	// ========================================================================
	// Step 2: Store the payload
	// ========================================================================

	if err := g.content.Set(ctx, id, data); err != nil {
		return opError(op, id, external(err))
	}

	// ========================================================================
	// Step 3: Persist the record
	// ========================================================================

	if err := g.meta.Insert(ctx, id, rec); err != nil {
		if created {
			// Do not leave a payload behind that no record points to.
			if delErr := g.content.Delete(context.WithoutCancel(ctx), id); delErr != nil {
				logger.Error("write %s: orphaned payload after metadata failure: %v", id, delErr)
			}
		}
		return opError(op, id, storeFailure(err))
	}

	if created {
		g.metrics.RecordRecordCreated(op)
	}
	g.metrics.RecordPayloadBytes(op, len(data))
	return nil
}

// Delete removes the payload and the record for id on behalf of caller.
//
// The payload is deleted first; if that fails the record is kept and
// ErrExternal is returned.
func (g *Gateway) Delete(ctx context.Context, caller access.Identity, id metadata.Identifier) (err error) {
	const op = "delete"
	start := time.Now()
	defer func() { g.observe(op, caller, id, start, err) }()

	if err := validateID(id); err != nil {
		return opError(op, id, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.lookup(ctx, id)
	if err != nil {
		return opError(op, id, err)
	}

	if !g.policy.Allows(caller, rec, access.OpDelete) {
		return opError(op, id, ErrPermissionDenied)
	}

	if err := g.content.Delete(ctx, id); err != nil {
		return opError(op, id, external(err))
	}

	if err := g.meta.Remove(ctx, id); err != nil {
		return opError(op, id, storeFailure(err))
	}

	return nil
}
