package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishConsumeOrder(t *testing.T) {
	b := NewEventBus()
	ctx := context.Background()

	for i, id := range []string{"m1", "m2", "m3"} {
		err := b.Publish(ctx, Event{Kind: EventMessageCreated, Message: Message{MessageID: id}})
		require.NoError(t, err, "event %d", i)
	}

	for _, want := range []string{"m1", "m2", "m3"} {
		ev, ok := b.Consume(ctx)
		require.True(t, ok)
		assert.Equal(t, want, ev.Message.MessageID)
	}
}

func TestCloseDrainsQueuedEvents(t *testing.T) {
	b := NewEventBus()
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, Event{Message: Message{MessageID: "m1"}}))
	require.NoError(t, b.Publish(ctx, Event{Message: Message{MessageID: "m2"}}))
	b.Close()

	ev, ok := b.Consume(ctx)
	require.True(t, ok)
	assert.Equal(t, "m1", ev.Message.MessageID)

	ev, ok = b.Consume(ctx)
	require.True(t, ok)
	assert.Equal(t, "m2", ev.Message.MessageID)

	_, ok = b.Consume(ctx)
	assert.False(t, ok)
}

func TestPublishAfterClose(t *testing.T) {
	b := NewEventBus()
	b.Close()

	err := b.Publish(context.Background(), Event{})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewEventBus()
	b.Close()
	b.Close()
}

func TestConsumeHonorsContext(t *testing.T) {
	b := NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := b.Consume(ctx)
	assert.False(t, ok)
}
