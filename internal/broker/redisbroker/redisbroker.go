// Package redisbroker implements broker.Broker on top of Redis, using
// native PUBLISH/SUBSCRIBE for the pub/sub side and SET/GET/SETNX for
// the key/value side-channel. This is the production backend; the same
// client library (github.com/redis/go-redis/v9) is used elsewhere in
// the wider corpus this project was grounded on for an identical
// cache/session-store role.
package redisbroker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Sunzheini/AegisAI-sub000/internal/broker"
)

// Broker adapts a *redis.Client to the broker.Broker interface.
type Broker struct {
	client *redis.Client
}

// New wraps an already-configured *redis.Client. The caller owns
// connection lifecycle concerns (TLS, pool size, auth) via opts.
func New(opts *redis.Options) *Broker {
	return &Broker{client: redis.NewClient(opts)}
}

// NewFromClient wraps an existing client, primarily for tests that
// build a client against a miniredis instance.
func NewFromClient(client *redis.Client) *Broker {
	return &Broker{client: client}
}

func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: publish %s: %v", broker.ErrTransport, channel, err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (broker.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", broker.ErrTransport, channel, err)
	}

	sub := &subscription{
		pubsub: pubsub,
		out:    make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

func (b *Broker) Close() error {
	return b.client.Close()
}

// subscription adapts redis.PubSub to broker.Subscription, translating
// *redis.Message values into raw payload bytes on a buffered channel so
// slow consumers cannot stall the underlying pubsub connection.
type subscription struct {
	pubsub *redis.PubSub
	out    chan []byte
	done   chan struct{}
}

func (s *subscription) pump() {
	defer close(s.out)
	ch := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *subscription) Messages() <-chan []byte {
	return s.out
}

func (s *subscription) Close() error {
	select {
	case <-s.done:
		// already closed
	default:
		close(s.done)
	}
	return s.pubsub.Close()
}
