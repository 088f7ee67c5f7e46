package metadata

import "errors"

var (
	// ErrRecordNotFound is returned by Remove when no record exists for the identifier.
	ErrRecordNotFound = errors.New("record not found")

	// ErrCorruptRecord indicates a stored record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrStoreClosed is returned for operations on a closed store.
	ErrStoreClosed = errors.New("metadata store closed")
)

// ErrStoreFull is returned when a store-level record limit would be exceeded.
var ErrStoreFull = errors.New("metadata store full")
