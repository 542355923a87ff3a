// Package broker hides the pub/sub and key/value side-channel protocol
// behind a small interface so the orchestrator core never depends on a
// concrete transport. Two implementations are provided: redisbroker
// (production) and localbus (embedded/local, no external dependency).
package broker

import (
	"context"
	"errors"
)

// ErrTransport wraps any failure reaching the underlying broker:
// connection refused, context deadline, serialization of the transport
// itself. It is distinct from an application-level timeout waiting for
// a correlated reply (see workerclient.TimeoutError).
var ErrTransport = errors.New("broker: transport error")

// ErrClosed reports that a subscription's Messages channel closed while
// a caller was still waiting on it. The implementations here never
// return it themselves; workerclient wraps it in a TransportError.
var ErrClosed = errors.New("broker: subscription closed")

// Broker is the contract consumed by the rest of the system for the
// pub/sub half of the protocol: publish a message on a channel, and
// subscribe to one. The key/value side-channel used for job-state
// persistence is a separate concern: see package statestore: so that
// a deployment can pair an in-process pub/sub bus with a durable,
// disk-backed KV store (or vice versa) without the two being coupled.
type Broker interface {
	// Publish delivers payload to all current subscribers of channel.
	// Fails with ErrTransport if the broker is unreachable.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe opens a cancellable stream of messages published to
	// channel from this point forward. No replay of prior messages.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Close releases any pooled connections held by the broker.
	Close() error
}

// Subscription is a cancellable stream of raw message bytes delivered
// in broker arrival order. The stream ends (Messages channel closes)
// when Close is called or the underlying connection dies; callers must
// re-subscribe to recover from the latter.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
