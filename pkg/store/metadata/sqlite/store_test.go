package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
	metadatatesting "github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *SQLiteMetadataStore {
	t.Helper()
	store, err := Open(context.Background(), SQLiteMetadataStoreConfig{Path: path})
	require.NoError(t, err)
	return store
}

func TestSQLiteMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			return openTestStore(t, filepath.Join(t.TempDir(), "records.db"))
		},
	}

	suite.Run(t)
}

func TestSQLiteMetadataStore_Memory(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			return openTestStore(t, ":memory:")
		},
	}

	suite.Run(t)
}

func TestSQLiteMetadataStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")
	rec := access.Record{Author: "bob", Access: access.Write}

	store := openTestStore(t, path)
	require.NoError(t, store.Insert(ctx, "\x00\xffbin", rec))
	require.NoError(t, store.Close())

	reopened := openTestStore(t, path)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, "\x00\xffbin")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), SQLiteMetadataStoreConfig{Path: "  "})
	assert.Error(t, err)
}
