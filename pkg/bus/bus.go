// Package bus queues inbound platform events for the relay loop. A
// single consumer drains the queue, which makes event handling
// serialized by construction: no two handlers ever mutate the same
// channel's buffers or identity entries concurrently.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed EventBus.
var ErrBusClosed = errors.New("event bus closed")

type EventBus struct {
	events chan Event
	done   chan struct{}
	closed atomic.Bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		events: make(chan Event, 100),
		done:   make(chan struct{}),
	}
}

func (b *EventBus) Publish(ctx context.Context, ev Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	select {
	case b.events <- ev:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks for the next event. After Close it keeps returning
// queued events until the buffer is drained, then reports false.
func (b *EventBus) Consume(ctx context.Context) (Event, bool) {
	select {
	case ev := <-b.events:
		return ev, true
	default:
	}
	select {
	case ev := <-b.events:
		return ev, true
	case <-b.done:
		select {
		case ev := <-b.events:
			return ev, true
		default:
			return Event{}, false
		}
	case <-ctx.Done():
		return Event{}, false
	}
}

func (b *EventBus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
}
