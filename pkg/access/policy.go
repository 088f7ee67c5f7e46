package access

import "fmt"

// Operation is a gated gateway operation.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Policy configures which level each operation requires and how writes to
// unknown identifiers are handled.
//
// The compat policy reproduces the historical behaviour where write and delete
// are checked against Read, so any caller who can read a record can also
// overwrite or delete it. The strict policy requires Write for both.
type Policy struct {
	// Name identifies the policy in logs ("compat", "strict" or "custom")
	Name string

	ReadLevel   Level
	WriteLevel  Level
	DeleteLevel Level

	// CreateOnWrite lets a write to an unknown identifier create the record,
	// authored by the caller. When false such writes fail with "no such record".
	CreateOnWrite bool

	// DefaultAccess is the level given to records created implicitly by a write
	DefaultAccess Level
}

// CompatPolicy checks every operation against Read and requires records to
// be provisioned before they can be written.
func CompatPolicy() Policy {
	return Policy{
		Name:          "compat",
		ReadLevel:     Read,
		WriteLevel:    Read,
		DeleteLevel:   Read,
		CreateOnWrite: false,
		DefaultAccess: DefaultLevel,
	}
}

// StrictPolicy requires Write for mutations and creates records on first write.
func StrictPolicy() Policy {
	return Policy{
		Name:          "strict",
		ReadLevel:     Read,
		WriteLevel:    Write,
		DeleteLevel:   Write,
		CreateOnWrite: true,
		DefaultAccess: DefaultLevel,
	}
}

// PolicyByName returns a named policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "compat":
		return CompatPolicy(), nil
	case "strict", "":
		return StrictPolicy(), nil
	default:
		return Policy{}, fmt.Errorf("unknown access policy %q", name)
	}
}

// Required returns the level op must be evaluated against.
// Unknown operations require Write, the highest level.
func (p Policy) Required(op Operation) Level {
	switch op {
	case OpRead:
		return p.ReadLevel
	case OpWrite:
		return p.WriteLevel
	case OpDelete:
		return p.DeleteLevel
	default:
		return Write
	}
}

// Allows evaluates caller against rec for op.
func (p Policy) Allows(caller Identity, rec Record, op Operation) bool {
	return Evaluate(caller, rec, p.Required(op))
}

// Validate checks that every level in the policy is a declared level.
func (p Policy) Validate() error {
	for _, l := range []Level{p.ReadLevel, p.WriteLevel, p.DeleteLevel, p.DefaultAccess} {
		if !l.Valid() {
			return fmt.Errorf("policy %q: invalid level %d", p.Name, uint8(l))
		}
	}
	return nil
}
