package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// BadgerMetadataStore implements metadata.Store using BadgerDB for persistence.
//
// Every operation runs in its own Badger transaction, so each mutation is a
// single atomic, durable state transition. Records survive restarts and
// crashes (WAL-based recovery).
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use; the store holds no
// additional locks.
type BadgerMetadataStore struct {
	db *badger.DB
}

// BadgerMetadataStoreConfig contains configuration for creating a BadgerDB metadata store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory where BadgerDB will store its files
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database entirely in memory (DBPath is ignored).
	// Intended for tests.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every commit before returning
	SyncWrites bool `mapstructure:"sync_writes"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// NewBadgerMetadataStore opens (or creates) a BadgerDB-backed store.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database location and tuning
//
// Returns:
//   - *BadgerMetadataStore: Store ready for use
//   - error: If the database cannot be opened or has an unknown schema
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !config.InMemory && config.DBPath == "" {
		return nil, fmt.Errorf("badger db_path is required")
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	// Records are a few dozen bytes; compression is not worth it
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)
	opts = opts.WithSyncWrites(config.SyncWrites)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	store := &BadgerMetadataStore{db: db}

	if err := store.checkSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// checkSchema stamps a fresh database with the schema version and rejects
// databases written by an unknown version.
func (s *BadgerMetadataStore) checkSchema() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(schemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		return item.Value(func(val []byte) error {
			if string(val) != schemaVersion {
				return fmt.Errorf("unsupported metadata schema version %q (want %s)", val, schemaVersion)
			}
			return nil
		})
	})
}

func (s *BadgerMetadataStore) Exists(ctx context.Context, id metadata.Identifier) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyRecord(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, wrapErr("exists", err)
	}

	return found, nil
}

func (s *BadgerMetadataStore) Get(ctx context.Context, id metadata.Identifier) (access.Record, error) {
	if err := ctx.Err(); err != nil {
		return access.Record{}, err
	}

	rec := access.DefaultRecord()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRecord(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			decoded, err := metadata.DecodeRecord(val)
			if err != nil {
				return err
			}
			rec = decoded
			return nil
		})
	})
	if err != nil {
		return access.Record{}, wrapErr("get", err)
	}

	return rec, nil
}

func (s *BadgerMetadataStore) Insert(ctx context.Context, id metadata.Identifier, rec access.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	val, err := metadata.EncodeRecord(rec)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyRecord(id), val)
	})
	return wrapErr("insert", err)
}

func (s *BadgerMetadataStore) Remove(ctx context.Context, id metadata.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		key := keyRecord(id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return metadata.ErrRecordNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
	return wrapErr("remove", err)
}

// Count returns the number of stored records. It scans keys only.
func (s *BadgerMetadataStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixRecord)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// Healthcheck performs a read transaction against the schema key.
func (s *BadgerMetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.db.IsClosed() {
		return metadata.ErrStoreClosed
	}

	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		return err
	})
}

// Close flushes pending writes and closes the database.
func (s *BadgerMetadataStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// wrapErr adds operation context to infrastructure errors while leaving
// package sentinels matchable with errors.Is.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("badger %s: %w", op, metadata.ErrStoreClosed)
	}
	return fmt.Errorf("badger %s: %w", op, err)
}
