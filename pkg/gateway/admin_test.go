package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
)

func TestProvision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.CompatPolicy())

	require.NoError(t, f.gw.Provision(ctx, alice, "k", access.Avoid))

	rec, ok := f.record(t, "k")
	require.True(t, ok)
	assert.Equal(t, access.Record{Author: alice, Access: access.Avoid}, rec)
	assert.Zero(t, f.content.Calls(), "provisioning never touches the backend")

	assert.ErrorIs(t, f.gw.Provision(ctx, bob, "k", access.Read), ErrRecordExists)
	assert.ErrorIs(t, f.gw.Provision(ctx, bob, "other", access.Level(7)), ErrInvalidAccess)
}

func TestSetAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.StrictPolicy())
	f.seed(t, "k", access.Record{Author: alice, Access: access.Write}, []byte("v"))

	assert.ErrorIs(t, f.gw.SetAccess(ctx, bob, "k", access.Avoid), ErrPermissionDenied)
	assert.ErrorIs(t, f.gw.SetAccess(ctx, alice, "missing", access.Avoid), ErrNoSuchRecord)
	assert.ErrorIs(t, f.gw.SetAccess(ctx, alice, "k", access.Level(3)), ErrInvalidAccess)

	require.NoError(t, f.gw.SetAccess(ctx, alice, "k", access.Avoid))

	rec, ok := f.record(t, "k")
	require.True(t, ok)
	assert.Equal(t, access.Record{Author: alice, Access: access.Avoid}, rec)

	_, err := f.gw.Read(ctx, bob, "k")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.StrictPolicy())
	f.seed(t, "open", access.Record{Author: alice, Access: access.Read}, nil)
	f.seed(t, "closed", access.Record{Author: alice, Access: access.Avoid}, nil)

	rec, err := f.gw.Stat(ctx, bob, "open")
	require.NoError(t, err)
	assert.Equal(t, alice, rec.Author)

	_, err = f.gw.Stat(ctx, bob, "closed")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	rec, err = f.gw.Stat(ctx, alice, "closed")
	require.NoError(t, err)
	assert.Equal(t, access.Avoid, rec.Access)

	_, err = f.gw.Stat(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrNoSuchRecord)
}
