// Package testing provides a conformance suite for content.Store
// implementations.
package testing

import (
	"bytes"
	"context"
	"testing"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a test suite for content.Store implementations.
// It tests the interface contract, not implementation details, making it
// reusable across backends (memory, filesystem, HTTP, ...).
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &contenttesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test. The suite closes it.
	NewStore func(t *testing.T) content.Store

	// BinaryKeys enables cases with non-UTF-8 identifiers. Leave false for
	// backends that require textual keys.
	BinaryKeys bool
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Get_Missing", suite.testGetMissing)
	t.Run("Set_ThenGet", suite.testSetGet)
	t.Run("Set_Overwrites", suite.testSetOverwrites)
	t.Run("Set_Empty", suite.testSetEmpty)
	t.Run("Set_CopiesInput", suite.testSetCopies)
	t.Run("Delete", suite.testDelete)
	t.Run("Delete_Missing", suite.testDeleteMissing)
	t.Run("Large", suite.testLarge)
	t.Run("Healthcheck", suite.testHealthcheck)
	if suite.BinaryKeys {
		t.Run("BinaryIdentifiers", suite.testBinaryIdentifiers)
	}
}

func (suite *StoreTestSuite) newStore(t *testing.T) content.Store {
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func (suite *StoreTestSuite) testGetMissing(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testSetGet(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Set(ctx, "key", []byte("payload")))

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func (suite *StoreTestSuite) testSetOverwrites(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Set(ctx, "key", []byte("a much longer first payload")))
	require.NoError(t, store.Set(ctx, "key", []byte("short")))

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("short"), got)
}

func (suite *StoreTestSuite) testSetEmpty(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Set(ctx, "empty", nil))

	got, err := store.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func (suite *StoreTestSuite) testSetCopies(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	buf := []byte("original")
	require.NoError(t, store.Set(ctx, "key", buf))
	copy(buf, "XXXXXXXX")

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	require.NoError(t, store.Set(ctx, "key", []byte("payload")))
	require.NoError(t, store.Delete(ctx, "key"))

	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testDeleteMissing(t *testing.T) {
	store := suite.newStore(t)

	assert.NoError(t, store.Delete(context.Background(), "never-written"))
}

func (suite *StoreTestSuite) testLarge(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	data := bytes.Repeat([]byte{0x00, 0xff, 0x10, 0x7f}, 256*1024)
	require.NoError(t, store.Set(ctx, "large", data))

	got, err := store.Get(ctx, "large")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got), "payload mismatch (%d bytes)", len(got))
}

func (suite *StoreTestSuite) testHealthcheck(t *testing.T) {
	store := suite.newStore(t)
	assert.NoError(t, store.Healthcheck(context.Background()))
}

func (suite *StoreTestSuite) testBinaryIdentifiers(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	a := metadata.Identifier("\x00\xff")
	b := metadata.Identifier("\x00\xfe")

	require.NoError(t, store.Set(ctx, a, []byte("a")))
	require.NoError(t, store.Set(ctx, b, []byte("b")))

	got, err := store.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	got, err = store.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}
