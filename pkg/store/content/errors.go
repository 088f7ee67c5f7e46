package content

import "errors"

// Implementations wrap these with context so errors.Is keeps working:
//
//	return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
var (
	// ErrContentNotFound indicates nothing is stored under the identifier.
	//
	// Protocol Mapping:
	//   - HTTP backend: 404 Not Found on GET
	//   - S3: NoSuchKey
	//   - Redis: nil reply
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidIdentifier indicates the identifier cannot be mapped to a
	// backend key (e.g. non-UTF-8 bytes for a path- or text-keyed backend).
	ErrInvalidIdentifier = errors.New("invalid content identifier")

	// ErrUnavailable indicates the backend answered but cannot serve the
	// request right now (5xx, throttling, connection refused).
	ErrUnavailable = errors.New("storage unavailable")

	// ErrStoreClosed is returned for operations on a closed store.
	ErrStoreClosed = errors.New("content store closed")
)
