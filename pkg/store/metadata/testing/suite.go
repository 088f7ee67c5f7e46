// Package testing provides a conformance suite for metadata.Store
// implementations.
package testing

import (
	"context"
	"testing"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite exercises the metadata.Store contract. It tests behaviour,
// not implementation details, so every backend runs the same cases.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &metadatatesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) metadata.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each test. The suite closes it.
	NewStore func(t *testing.T) metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Exists_Missing", suite.testExistsMissing)
	t.Run("Get_MissingReturnsDefault", suite.testGetMissing)
	t.Run("Insert_ThenGet", suite.testInsertGet)
	t.Run("Insert_Overwrites", suite.testInsertOverwrites)
	t.Run("Remove", suite.testRemove)
	t.Run("Remove_Missing", suite.testRemoveMissing)
	t.Run("BinaryIdentifiers", suite.testBinaryIdentifiers)
	t.Run("Healthcheck", suite.testHealthcheck)
	t.Run("CancelledContext", suite.testCancelledContext)
}

func (suite *StoreTestSuite) newStore(t *testing.T) metadata.Store {
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func (suite *StoreTestSuite) testExistsMissing(t *testing.T) {
	store := suite.newStore(t)

	ok, err := store.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func (suite *StoreTestSuite) testGetMissing(t *testing.T) {
	store := suite.newStore(t)

	rec, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, access.DefaultRecord(), rec)
}

func (suite *StoreTestSuite) testInsertGet(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)
	rec := access.Record{Author: "alice", Access: access.Avoid}

	require.NoError(t, store.Insert(ctx, "key", rec))

	ok, err := store.Exists(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func (suite *StoreTestSuite) testInsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Insert(ctx, "key", access.Record{Author: "alice", Access: access.Read}))
	require.NoError(t, store.Insert(ctx, "key", access.Record{Author: "alice", Access: access.Write}))

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, access.Write, got.Access)
}

func (suite *StoreTestSuite) testRemove(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Insert(ctx, "key", access.Record{Author: "alice", Access: access.Read}))
	require.NoError(t, store.Remove(ctx, "key"))

	ok, err := store.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removal is total: a later Get falls back to the default record
	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, access.DefaultRecord(), got)
}

func (suite *StoreTestSuite) testRemoveMissing(t *testing.T) {
	store := suite.newStore(t)

	err := store.Remove(context.Background(), "missing")
	assert.ErrorIs(t, err, metadata.ErrRecordNotFound)
}

func (suite *StoreTestSuite) testBinaryIdentifiers(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	a := metadata.IdentifierFromBytes([]byte{0x00, 0xff, 0x10})
	b := metadata.IdentifierFromBytes([]byte{0x00, 0xff, 0x11})

	require.NoError(t, store.Insert(ctx, a, access.Record{Author: "alice", Access: access.Write}))

	ok, err := store.Exists(ctx, b)
	require.NoError(t, err)
	assert.False(t, ok, "identifiers must compare byte-for-byte")

	got, err := store.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, access.Identity("alice"), got.Author)
}

func (suite *StoreTestSuite) testHealthcheck(t *testing.T) {
	store := suite.newStore(t)
	assert.NoError(t, store.Healthcheck(context.Background()))
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store := suite.newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Exists(ctx, "key")
	assert.ErrorIs(t, err, context.Canceled)

	err = store.Insert(ctx, "key", access.DefaultRecord())
	assert.ErrorIs(t, err, context.Canceled)
}
