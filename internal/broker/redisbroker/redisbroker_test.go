package redisbroker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client)
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "ch1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Publish(ctx, "ch1", []byte("hello")))

	select {
	case msg := <-sub.Messages():
		assert.Equal(t, []byte("hello"), msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "ch1")
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	_, open := <-sub.Messages()
	assert.False(t, open)
}

func TestSubscribeFailsOnUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	b := NewFromClient(client)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := b.Subscribe(ctx, "ch1")
	assert.Error(t, err)
}
