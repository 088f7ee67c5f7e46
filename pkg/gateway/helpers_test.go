package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/events"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	contentmemory "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/memory"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
	metadatamemory "github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata/memory"
)

const (
	alice access.Identity = "1"
	bob   access.Identity = "2"
)

var errBackend = errors.New("backend exploded")

// faultyContent wraps a content store and fails selected operations.
type faultyContent struct {
	content.Store

	mu         sync.Mutex
	failGet    error
	failSet    error
	failDelete error
	calls      int
}

func (f *faultyContent) Get(ctx context.Context, id metadata.Identifier) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	err := f.failGet
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, id)
}

func (f *faultyContent) Set(ctx context.Context, id metadata.Identifier, data []byte) error {
	f.mu.Lock()
	f.calls++
	err := f.failSet
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Set(ctx, id, data)
}

func (f *faultyContent) Delete(ctx context.Context, id metadata.Identifier) error {
	f.mu.Lock()
	f.calls++
	err := f.failDelete
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Delete(ctx, id)
}

func (f *faultyContent) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// faultyMeta wraps a metadata store and fails Insert/Remove on demand.
type faultyMeta struct {
	metadata.Store
	failInsert error
	failRemove error
}

func (f *faultyMeta) Insert(ctx context.Context, id metadata.Identifier, rec access.Record) error {
	if f.failInsert != nil {
		return f.failInsert
	}
	return f.Store.Insert(ctx, id, rec)
}

func (f *faultyMeta) Remove(ctx context.Context, id metadata.Identifier) error {
	if f.failRemove != nil {
		return f.failRemove
	}
	return f.Store.Remove(ctx, id)
}

type fixture struct {
	gw       *Gateway
	meta     *faultyMeta
	mem      *metadatamemory.MemoryMetadataStore
	content  *faultyContent
	payloads *contentmemory.MemoryContentStore
	recorder *events.Recorder
}

func newFixture(t *testing.T, policy access.Policy) *fixture {
	t.Helper()

	mem := metadatamemory.NewMemoryMetadataStoreWithDefaults()
	payloads := contentmemory.NewMemoryContentStore()
	f := &fixture{
		meta:     &faultyMeta{Store: mem},
		mem:      mem,
		content:  &faultyContent{Store: payloads},
		payloads: payloads,
		recorder: events.NewRecorder(),
	}

	gw, err := New(Config{
		Metadata: f.meta,
		Content:  f.content,
		Notifier: f.recorder,
		Policy:   &policy,
	})
	require.NoError(t, err)
	f.gw = gw

	t.Cleanup(func() {
		_ = mem.Close()
		_ = payloads.Close()
	})
	return f
}

// seed installs a record and payload directly, bypassing the gateway.
func (f *fixture) seed(t *testing.T, id metadata.Identifier, rec access.Record, data []byte) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.mem.Insert(ctx, id, rec))
	require.NoError(t, f.payloads.Set(ctx, id, data))
}

func (f *fixture) record(t *testing.T, id metadata.Identifier) (access.Record, bool) {
	t.Helper()
	ctx := context.Background()
	ok, err := f.mem.Exists(ctx, id)
	require.NoError(t, err)
	if !ok {
		return access.Record{}, false
	}
	rec, err := f.mem.Get(ctx, id)
	require.NoError(t, err)
	return rec, true
}

func policies() map[string]access.Policy {
	return map[string]access.Policy{
		"compat": access.CompatPolicy(),
		"strict": access.StrictPolicy(),
	}
}
