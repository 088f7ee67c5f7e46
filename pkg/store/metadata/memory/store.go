package memory

import (
	"context"
	"sync"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// MemoryMetadataStore implements metadata.Store using an in-process map.
//
// It is suitable for:
//   - Testing and development environments
//   - Ephemeral deployments where records need not survive restarts
//
// Thread Safety:
// All operations are protected by a single read-write mutex, making the
// store safe for concurrent access from multiple goroutines.
type MemoryMetadataStore struct {
	mu      sync.RWMutex
	records map[metadata.Identifier]access.Record

	// maxRecords bounds the number of stored records; 0 means unlimited
	maxRecords int

	closed bool
}

// MemoryMetadataStoreConfig configures the in-memory store.
type MemoryMetadataStoreConfig struct {
	// MaxRecords is the maximum number of records that can be stored.
	// 0 means unlimited.
	MaxRecords int `mapstructure:"max_records"`
}

// NewMemoryMetadataStore creates an empty in-memory store.
func NewMemoryMetadataStore(cfg MemoryMetadataStoreConfig) *MemoryMetadataStore {
	return &MemoryMetadataStore{
		records:    make(map[metadata.Identifier]access.Record),
		maxRecords: cfg.MaxRecords,
	}
}

// NewMemoryMetadataStoreWithDefaults creates an unbounded in-memory store.
func NewMemoryMetadataStoreWithDefaults() *MemoryMetadataStore {
	return NewMemoryMetadataStore(MemoryMetadataStoreConfig{})
}

func (s *MemoryMetadataStore) Exists(ctx context.Context, id metadata.Identifier) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, metadata.ErrStoreClosed
	}

	_, ok := s.records[id]
	return ok, nil
}

func (s *MemoryMetadataStore) Get(ctx context.Context, id metadata.Identifier) (access.Record, error) {
	if err := ctx.Err(); err != nil {
		return access.Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return access.Record{}, metadata.ErrStoreClosed
	}

	rec, ok := s.records[id]
	if !ok {
		return access.DefaultRecord(), nil
	}
	return rec, nil
}

// Insert creates or overwrites the record for id.
//
// When MaxRecords is set, creating a new record beyond the limit fails;
// overwriting an existing record is always allowed.
func (s *MemoryMetadataStore) Insert(ctx context.Context, id metadata.Identifier, rec access.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return metadata.ErrStoreClosed
	}

	if _, exists := s.records[id]; !exists && s.maxRecords > 0 && len(s.records) >= s.maxRecords {
		return metadata.ErrStoreFull
	}

	s.records[id] = rec
	return nil
}

func (s *MemoryMetadataStore) Remove(ctx context.Context, id metadata.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return metadata.ErrStoreClosed
	}

	if _, ok := s.records[id]; !ok {
		return metadata.ErrRecordNotFound
	}
	delete(s.records, id)
	return nil
}

// Len returns the number of stored records.
func (s *MemoryMetadataStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Healthcheck always succeeds unless the context is done or the store is closed.
func (s *MemoryMetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return metadata.ErrStoreClosed
	}
	return nil
}

// Close drops all records. Subsequent calls return ErrStoreClosed.
func (s *MemoryMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.records = nil
	return nil
}
