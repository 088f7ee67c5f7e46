package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	contenttesting "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/testing"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSContentStore {
	t.Helper()
	store, err := NewFSContentStore(context.Background(), FSContentStoreConfig{Path: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestFSContentStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.Store {
			return newTestStore(t)
		},
	}

	suite.Run(t)
}

func TestFSContentStore_NestedPath(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "docs/2024/report.bin", []byte("x")))

	data, err := os.ReadFile(filepath.Join(store.BasePath(), "docs", "2024", "report.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestFSContentStore_InvalidIdentifiers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ids := []metadata.Identifier{
		"",
		"\xff\xfe",
		"/etc/passwd",
		"../escape",
		"a/../../escape",
		"nul\x00byte",
		"dir/" + tempPrefix + "x",
		".",
		"./doc",
		"doc/",
		"a/../doc",
		"a//doc",
		"a/./doc",
	}

	for _, id := range ids {
		t.Run(id.Hex(), func(t *testing.T) {
			assert.ErrorIs(t, store.Set(ctx, id, []byte("x")), content.ErrInvalidIdentifier)

			_, err := store.Get(ctx, id)
			assert.ErrorIs(t, err, content.ErrInvalidIdentifier)

			assert.ErrorIs(t, store.Delete(ctx, id), content.ErrInvalidIdentifier)
		})
	}
}

// Identifiers that clean to the same path must not share a file.
func TestFSContentStore_NoAliasing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "doc", []byte("original")))
	require.NoError(t, store.Set(ctx, "a/doc", []byte("nested")))

	for _, alias := range []metadata.Identifier{"./doc", "doc/", "a/../doc", "a//doc", "./a/doc"} {
		assert.ErrorIs(t, store.Set(ctx, alias, []byte("overwritten")), content.ErrInvalidIdentifier, "set %q", alias)
		assert.ErrorIs(t, store.Delete(ctx, alias), content.ErrInvalidIdentifier, "delete %q", alias)
	}

	data, err := store.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)

	data, err = store.Get(ctx, "a/doc")
	require.NoError(t, err)
	assert.Equal(t, []byte("nested"), data)
}

func TestFSContentStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	require.NoError(t, store.Set(ctx, "a", []byte("2")))

	entries, err := os.ReadDir(store.BasePath())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Name())
}

func TestNewFSContentStore_RequiresPath(t *testing.T) {
	_, err := NewFSContentStore(context.Background(), FSContentStoreConfig{})
	assert.Error(t, err)
}
