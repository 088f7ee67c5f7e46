// Package access holds the permission model of the gateway: access levels,
// the per-identifier record, and the rule that decides whether a caller may
// perform an operation on a record.
package access

import (
	"fmt"
	"strings"
)

// Identity is an already-authenticated caller identifier.
//
// The package never verifies identities; the embedding host does. The zero
// value "" is the default (unset) identity.
type Identity string

// Level ranks how much non-author callers may do with a record.
type Level uint8

const (
	// Avoid: no one but the author may read or write.
	Avoid Level = iota

	// Read: any caller may read; only the author may write or delete.
	Read

	// Write: any caller may read, write or delete.
	Write
)

// DefaultLevel is the level given to records when none is specified.
const DefaultLevel = Read

// Rank maps a level onto its position in the total order Avoid < Read < Write.
//
// Unknown values rank as Avoid so a corrupted level never grants more than
// the lowest tier.
func Rank(l Level) uint8 {
	switch l {
	case Avoid:
		return 0
	case Read:
		return 1
	case Write:
		return 2
	default:
		return 0
	}
}

// Valid reports whether l is one of the declared levels.
func (l Level) Valid() bool {
	return l <= Write
}

func (l Level) String() string {
	switch l {
	case Avoid:
		return "avoid"
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// ParseLevel parses "avoid", "read" or "write" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "avoid":
		return Avoid, nil
	case "read":
		return Read, nil
	case "write":
		return Write, nil
	default:
		return Avoid, fmt.Errorf("unknown access level %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid access level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Record is the access-control metadata kept for one identifier.
//
// Author always keeps full rights on the record regardless of Access;
// Access only governs everybody else.
type Record struct {
	Author Identity `json:"author"`
	Access Level    `json:"access"`
}

// DefaultRecord returns the zero-identity record with the default level.
func DefaultRecord() Record {
	return Record{Access: DefaultLevel}
}

// Evaluate decides whether caller may act on rec at the requested level.
//
// The author is always allowed. Anyone else is allowed when the record's
// declared level ranks at or above the requested one.
func Evaluate(caller Identity, rec Record, requested Level) bool {
	return Rank(rec.Access) >= Rank(requested) || caller == rec.Author
}
