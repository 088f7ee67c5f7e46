package memory

import (
	"context"
	"testing"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	contenttesting "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContentStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.Store {
			return NewMemoryContentStore()
		},
		BinaryKeys: true,
	}

	suite.Run(t)
}

func TestMemoryContentStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryContentStore()

	require.NoError(t, store.Set(ctx, "k", []byte("abc")))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'X'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryContentStore_Closed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryContentStore()
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Set(ctx, "k", nil), content.ErrStoreClosed)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, content.ErrStoreClosed)
	assert.ErrorIs(t, store.Healthcheck(ctx), content.ErrStoreClosed)
}
