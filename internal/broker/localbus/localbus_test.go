package localbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sunzheini/AegisAI-sub000/internal/broker"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := New()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "ch1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.Publish(ctx, "ch1", []byte("hello")))

	select {
	case msg := <-sub.Messages():
		assert.Equal(t, []byte("hello"), msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestPublishDoesNotCrossChannels(t *testing.T) {
	bus := New()
	ctx := context.Background()

	subA, err := bus.Subscribe(ctx, "a")
	require.NoError(t, err)
	defer subA.Close()

	require.NoError(t, bus.Publish(ctx, "b", []byte("for-b")))

	select {
	case msg := <-subA.Messages():
		t.Fatalf("unexpected message on channel a: %s", msg)
	case <-time.After(50 * time.Millisecond):
		// expected: nothing delivered
	}
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	bus := New()
	ctx := context.Background()

	sub1, err := bus.Subscribe(ctx, "fanout")
	require.NoError(t, err)
	defer sub1.Close()

	sub2, err := bus.Subscribe(ctx, "fanout")
	require.NoError(t, err)
	defer sub2.Close()

	require.NoError(t, bus.Publish(ctx, "fanout", []byte("x")))

	for _, sub := range []broker.Subscription{sub1, sub2} {
		select {
		case msg := <-sub.Messages():
			assert.Equal(t, []byte("x"), msg)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out message")
		}
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := New()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	_, open := <-sub.Messages()
	assert.False(t, open, "messages channel should be closed after Close")

	// Publishing after close must not panic or block.
	assert.NoError(t, bus.Publish(ctx, "c", []byte("ignored")))
}
