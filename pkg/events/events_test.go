package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataRetrieved_CopiesData(t *testing.T) {
	data := []byte("payload")
	ev := NewDataRetrieved("key", "alice", data)
	data[0] = 'X'

	assert.Equal(t, DataRetrieved, ev.Kind)
	assert.Equal(t, []byte("payload"), ev.Data)
	assert.NotEqual(t, ev.ID, NewDataRetrieved("key", "alice", nil).ID)
	assert.False(t, ev.Time.IsZero())
}

func TestEvent_JSONIdentifierIsHex(t *testing.T) {
	id := metadata.Identifier("\x00\xff\xfe")
	ev := NewDataRetrieved(id, "alice", []byte("payload"))

	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.Equal(t, "00fffe", fields["identifier"])
	assert.Equal(t, "alice", fields["caller"])
	assert.Equal(t, string(DataRetrieved), fields["kind"])

	var back Event
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, id, back.Identifier)
	assert.Equal(t, ev.ID, back.ID)
	assert.Equal(t, ev.Data, back.Data)
	assert.True(t, ev.Time.Equal(back.Time))

	assert.Error(t, json.Unmarshal([]byte(`{"identifier":"zz"}`), &back))
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()

	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.Notify(ctx, NewDataRetrieved("a", "alice", nil)))
	require.NoError(t, r.Notify(ctx, NewDataRetrieved("b", "bob", nil)))

	assert.Equal(t, 2, r.Len())
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "b", string(last.Identifier))

	evs := r.Events()
	evs[0].Caller = "mallory"
	assert.Equal(t, "alice", string(r.Events()[0].Caller))

	r.Reset()
	assert.Zero(t, r.Len())
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	a, b := NewRecorder(), NewRecorder()
	boom := errors.New("boom")

	m := Multi{a, NotifierFunc(func(context.Context, Event) error { return boom }), b}
	err := m.Notify(ctx, NewDataRetrieved("k", "alice", nil))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len(), "later notifiers still run")

	assert.NoError(t, Multi{}.Notify(ctx, Event{}))
	assert.NoError(t, Noop{}.Notify(ctx, Event{}))
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), NewDataRetrieved("\x00bin", "alice", []byte("x"))))
}

func TestQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(10, false)
	defer func() { _ = q.Close() }()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Notify(ctx, NewDataRetrieved(metadata.Identifier(id), "alice", nil)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		ev, err := q.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, string(ev.Identifier))
	}
}

func TestQueue_Full(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(1, false)
	defer func() { _ = q.Close() }()

	require.NoError(t, q.Notify(ctx, Event{}))
	assert.ErrorIs(t, q.Notify(ctx, Event{}), ErrQueueFull)
}

func TestQueue_BlockingRespectsContext(t *testing.T) {
	q := NewQueue(1, true)
	defer func() { _ = q.Close() }()

	require.NoError(t, q.Notify(context.Background(), Event{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, q.Notify(ctx, Event{}))
}

func TestQueue_NextWaits(t *testing.T) {
	q := NewQueue(0, false)
	defer func() { _ = q.Close() }()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = q.Notify(context.Background(), NewDataRetrieved("late", "bob", nil))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ev, err := q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "late", string(ev.Identifier))
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(1, false)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Notify(context.Background(), Event{}), ErrQueueClosed)

	_, err := q.Next(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_Forward(t *testing.T) {
	q := NewQueue(10, false)
	rec := NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- q.Forward(ctx, rec) }()

	require.NoError(t, q.Notify(ctx, NewDataRetrieved("a", "alice", []byte("x"))))
	require.NoError(t, q.Notify(ctx, NewDataRetrieved("b", "bob", nil)))

	require.Eventually(t, func() bool { return rec.Len() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Forward did not return")
	}
}
