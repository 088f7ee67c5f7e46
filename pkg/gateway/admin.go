package gateway

import (
	"context"
	"time"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// Provision creates the record {caller, level} for id without touching the
// content backend. It is the only way to create a record when the policy
// does not create on write.
func (g *Gateway) Provision(ctx context.Context, caller access.Identity, id metadata.Identifier, level access.Level) (err error) {
	const op = "provision"
	start := time.Now()
	defer func() { g.observe(op, caller, id, start, err) }()

	if err := validateID(id); err != nil {
		return opError(op, id, err)
	}
	if !level.Valid() {
		return opError(op, id, ErrInvalidAccess)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	exists, err := g.meta.Exists(ctx, id)
	if err != nil {
		return opError(op, id, storeFailure(err))
	}
	if exists {
		return opError(op, id, ErrRecordExists)
	}

	if err := g.meta.Insert(ctx, id, access.Record{Author: caller, Access: level}); err != nil {
		return opError(op, id, storeFailure(err))
	}

	g.metrics.RecordRecordCreated(op)
	return nil
}

// SetAccess changes the access level of an existing record. Only the author
// may do this; the author itself never changes.
func (g *Gateway) SetAccess(ctx context.Context, caller access.Identity, id metadata.Identifier, level access.Level) (err error) {
	const op = "set_access"
	start := time.Now()
	defer func() { g.observe(op, caller, id, start, err) }()

	if err := validateID(id); err != nil {
		return opError(op, id, err)
	}
	if !level.Valid() {
		return opError(op, id, ErrInvalidAccess)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.lookup(ctx, id)
	if err != nil {
		return opError(op, id, err)
	}
	if caller != rec.Author {
		return opError(op, id, ErrPermissionDenied)
	}

	rec.Access = level
	if err := g.meta.Insert(ctx, id, rec); err != nil {
		return opError(op, id, storeFailure(err))
	}

	return nil
}

// Stat returns the record for id if the caller may read it.
func (g *Gateway) Stat(ctx context.Context, caller access.Identity, id metadata.Identifier) (rec access.Record, err error) {
	const op = "stat"
	start := time.Now()
	defer func() { g.observe(op, caller, id, start, err) }()

	if err := validateID(id); err != nil {
		return access.Record{}, opError(op, id, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err = g.lookup(ctx, id)
	if err != nil {
		return access.Record{}, opError(op, id, err)
	}
	if !g.policy.Allows(caller, rec, access.OpRead) {
		return access.Record{}, opError(op, id, ErrPermissionDenied)
	}

	return rec, nil
}

// Exists reports whether id has a record. It applies no access check, as
// record presence is already observable through NoSuchRecord errors.
func (g *Gateway) Exists(ctx context.Context, id metadata.Identifier) (bool, error) {
	if err := validateID(id); err != nil {
		return false, opError("exists", id, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ok, err := g.meta.Exists(ctx, id)
	if err != nil {
		return false, opError("exists", id, storeFailure(err))
	}
	return ok, nil
}
