// Package localbus implements broker.Broker entirely in-process as an
// in-memory fan-out bus. It requires no external service and is the
// default transport for tests and single-process local runs, typically
// paired with statestore/boltstore for persistence.
//
// The registry of subscribers is protected by a single mutex, following
// the same shape as the teacher's websocket.Hub registry: a map of
// channel name to the set of subscriber outboxes: except localbus does
// not need a dedicated event-loop goroutine since registration and
// publish are both cheap, non-blocking operations here.
package localbus

import (
	"context"
	"sync"

	"github.com/Sunzheini/AegisAI-sub000/internal/broker"
)

// Bus is an in-memory broker.Broker.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*subscription]struct{} // channel -> subscriber set
}

// New creates an empty, ready-to-use Bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string]map[*subscription]struct{}),
	}
}

func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	subs := b.subs[channel]
	targets := make([]*subscription, 0, len(subs))
	for s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	cp := make([]byte, len(payload))
	copy(cp, payload)

	for _, s := range targets {
		select {
		case s.out <- cp:
		default:
			// Slow subscriber: drop rather than block the publisher.
			// At-most-once delivery is the documented guarantee.
		}
	}
	return nil
}

func (b *Bus) Subscribe(_ context.Context, channel string) (broker.Subscription, error) {
	s := &subscription{
		bus:     b,
		channel: channel,
		out:     make(chan []byte, 64),
	}

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscription]struct{})
	}
	b.subs[channel][s] = struct{}{}
	b.mu.Unlock()

	return s, nil
}

func (b *Bus) Close() error {
	return nil
}

func (b *Bus) unsubscribe(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[s.channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, s.channel)
		}
	}
}

type subscription struct {
	bus     *Bus
	channel string
	out     chan []byte
	once    sync.Once
}

func (s *subscription) Messages() <-chan []byte {
	return s.out
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
		close(s.out)
	})
	return nil
}
