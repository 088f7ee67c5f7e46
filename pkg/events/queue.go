package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/cheggaaa/mb/v3"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
)

// ErrQueueFull is returned by a non-blocking Queue when its buffer is full.
var ErrQueueFull = errors.New("notification queue full")

// ErrQueueClosed is returned after Close.
var ErrQueueClosed = errors.New("notification queue closed")

// Queue buffers events for an asynchronous consumer.
//
// Notify enqueues and returns; Next blocks until an event is available. With
// Block set, Notify waits for space (bounded by ctx) instead of failing with
// ErrQueueFull.
type Queue struct {
	mb    *mb.MB[Event]
	block bool
}

// NewQueue creates a queue holding at most size events. size <= 0 means
// unbounded.
func NewQueue(size int, block bool) *Queue {
	if size < 0 {
		size = 0
	}
	return &Queue{mb: mb.New[Event](size), block: block}
}

func (q *Queue) Notify(ctx context.Context, ev Event) error {
	var err error
	if q.block {
		err = q.mb.Add(ctx, ev)
	} else {
		err = q.mb.TryAdd(ev)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, mb.ErrOverflowed):
		return ErrQueueFull
	case errors.Is(err, mb.ErrClosed):
		return ErrQueueClosed
	default:
		return fmt.Errorf("enqueue notification: %w", err)
	}
}

// Next waits for the next event.
func (q *Queue) Next(ctx context.Context) (Event, error) {
	ev, err := q.mb.WaitOne(ctx)
	if errors.Is(err, mb.ErrClosed) {
		return Event{}, ErrQueueClosed
	}
	return ev, err
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	return q.mb.Len()
}

// Close stops the queue. Buffered events can still be drained with Next.
func (q *Queue) Close() error {
	if err := q.mb.Close(); err != nil && !errors.Is(err, mb.ErrClosed) {
		return err
	}
	return nil
}

// Forward delivers queued events to sink until ctx ends or the queue is
// closed. Sink failures are logged and do not stop forwarding.
func (q *Queue) Forward(ctx context.Context, sink Notifier) error {
	for {
		ev, err := q.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				return nil
			}
			return err
		}
		if err := sink.Notify(ctx, ev); err != nil {
			logger.Warn("Failed to forward notification %s: %v", ev.ID, err)
		}
	}
}
