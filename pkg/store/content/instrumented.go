package content

import (
	"context"
	"time"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// Metrics provides observability for content store operations.
//
// Implementations can use this interface to collect latency, throughput and
// error counts. This is optional - a nil Metrics disables collection.
type Metrics interface {
	// ObserveOperation records an operation with its duration and outcome
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records payload bytes moved by get/set
	RecordBytes(operation string, bytes int64)
}

// InstrumentedStore decorates a Store with Metrics.
type InstrumentedStore struct {
	Store
	metrics Metrics
}

// Instrumented wraps store so every operation reports to m.
// A nil m returns store unchanged.
func Instrumented(store Store, m Metrics) Store {
	if m == nil {
		return store
	}
	return &InstrumentedStore{Store: store, metrics: m}
}

func (s *InstrumentedStore) Get(ctx context.Context, id metadata.Identifier) (data []byte, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("get", time.Since(start), err)
		if err == nil {
			s.metrics.RecordBytes("get", int64(len(data)))
		}
	}()

	return s.Store.Get(ctx, id)
}

func (s *InstrumentedStore) Set(ctx context.Context, id metadata.Identifier, data []byte) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("set", time.Since(start), err)
		if err == nil {
			s.metrics.RecordBytes("set", int64(len(data)))
		}
	}()

	return s.Store.Set(ctx, id, data)
}

func (s *InstrumentedStore) Delete(ctx context.Context, id metadata.Identifier) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("delete", time.Since(start), err)
	}()

	return s.Store.Delete(ctx, id)
}

// Unwrap returns the decorated store.
func (s *InstrumentedStore) Unwrap() Store {
	return s.Store
}
