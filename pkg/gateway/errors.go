package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// Error classes returned by gateway operations.
//
// Every error returned by the gateway is an *OpError wrapping exactly one of
// these (or a context error), so callers classify with errors.Is:
//
//	if errors.Is(err, gateway.ErrPermissionDenied) {
//	    return http.StatusForbidden
//	}
var (
	// ErrNoSuchRecord indicates the identifier has no access record.
	ErrNoSuchRecord = errors.New("no such record")

	// ErrPermissionDenied indicates the caller failed the access check.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrExternal indicates the content backend failed. The backend's own
	// error is wrapped alongside and remains reachable with errors.Is/As.
	ErrExternal = errors.New("external storage error")

	// ErrStore indicates the metadata store failed.
	ErrStore = errors.New("metadata store error")

	// ErrRecordExists is returned by Provision for an identifier that
	// already has a record.
	ErrRecordExists = errors.New("record already exists")

	// ErrInvalidIdentifier indicates an empty identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidAccess indicates an access level outside Avoid/Read/Write.
	ErrInvalidAccess = errors.New("invalid access level")

	// ErrNotify indicates the read succeeded but its notification could not
	// be delivered.
	ErrNotify = errors.New("notification failed")
)

// OpError records a failed gateway operation.
type OpError struct {
	// Op is the operation name ("read", "write", ...)
	Op string

	// ID is the identifier the operation targeted
	ID metadata.Identifier

	// Err is the error class, possibly joined with an underlying cause
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op string, id metadata.Identifier, err error) error {
	return &OpError{Op: op, ID: id, Err: err}
}

// external wraps a content backend failure. Context errors pass through so
// callers can tell cancellation from backend faults.
func external(err error) error {
	if isContextErr(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrExternal, err)
}

// storeFailure wraps a metadata store failure.
func storeFailure(err error) error {
	if isContextErr(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}

// notifyFailure wraps a notifier failure.
func notifyFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrNotify, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Outcome classifies err into a short label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoSuchRecord):
		return "no_such_record"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrRecordExists):
		return "record_exists"
	case errors.Is(err, ErrInvalidIdentifier), errors.Is(err, ErrInvalidAccess):
		return "invalid_argument"
	case errors.Is(err, ErrExternal):
		return "external_error"
	case errors.Is(err, ErrStore):
		return "store_error"
	case errors.Is(err, ErrNotify):
		return "notify_error"
	case isContextErr(err):
		return "cancelled"
	default:
		return "error"
	}
}
