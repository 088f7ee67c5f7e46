//go:build property
// +build property

package access_test

import (
	"testing"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genLevel() gopter.Gen {
	return gen.OneConstOf(access.Avoid, access.Read, access.Write)
}

// TestAuthorAlwaysAllowed: Evaluate(author, rec, any) == true
func TestAuthorAlwaysAllowed(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("author passes every check", prop.ForAll(
		func(author string, declared, requested access.Level) bool {
			rec := access.Record{Author: access.Identity(author), Access: declared}
			return access.Evaluate(access.Identity(author), rec, requested)
		},
		gen.AlphaString(),
		genLevel(),
		genLevel(),
	))

	properties.TestingRun(t)
}

// TestNonAuthorGatedByRank: for caller != author, Evaluate == Rank(declared) >= Rank(requested)
func TestNonAuthorGatedByRank(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("non-authors are gated by rank", prop.ForAll(
		func(author, caller string, declared, requested access.Level) bool {
			if author == caller {
				return true
			}
			rec := access.Record{Author: access.Identity(author), Access: declared}
			want := access.Rank(declared) >= access.Rank(requested)
			return access.Evaluate(access.Identity(caller), rec, requested) == want
		},
		gen.Identifier(),
		gen.Identifier(),
		genLevel(),
		genLevel(),
	))

	properties.TestingRun(t)
}

// TestAvoidDeniesOthers: a record at Avoid denies every non-author read, write and delete
func TestAvoidDeniesOthers(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("avoid records deny non-authors under both policies", prop.ForAll(
		func(author, caller string, strict bool) bool {
			if author == caller {
				return true
			}
			policy := access.CompatPolicy()
			if strict {
				policy = access.StrictPolicy()
			}
			rec := access.Record{Author: access.Identity(author), Access: access.Avoid}
			for _, op := range []access.Operation{access.OpRead, access.OpWrite, access.OpDelete} {
				if policy.Allows(access.Identity(caller), rec, op) {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
