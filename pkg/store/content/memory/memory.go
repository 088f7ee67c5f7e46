// Package memory implements an in-memory content store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// MemoryContentStore implements content.Store using a map.
//
// This implementation is designed for:
//   - Testing and development
//   - Ephemeral deployments where payload loss on restart is acceptable
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Payloads are copied on
// read and write so callers may reuse their buffers.
type MemoryContentStore struct {
	mu     sync.RWMutex
	data   map[metadata.Identifier][]byte
	closed bool
}

// NewMemoryContentStore creates an empty in-memory content store.
func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{
		data: make(map[metadata.Identifier][]byte),
	}
}

func (s *MemoryContentStore) Get(ctx context.Context, id metadata.Identifier) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, content.ErrStoreClosed
	}

	data, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryContentStore) Set(ctx context.Context, id metadata.Identifier, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return content.ErrStoreClosed
	}

	s.data[id] = buf
	return nil
}

func (s *MemoryContentStore) Delete(ctx context.Context, id metadata.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return content.ErrStoreClosed
	}

	delete(s.data, id)
	return nil
}

// Has reports whether a payload is stored under id.
func (s *MemoryContentStore) Has(id metadata.Identifier) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok
}

// Len returns the number of stored payloads.
func (s *MemoryContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryContentStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return content.ErrStoreClosed
	}
	return nil
}

// Close drops all payloads. Subsequent operations return ErrStoreClosed.
func (s *MemoryContentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}
