package wshub

import (
	"context"
	"sync"

	"github.com/Sunzheini/AegisAI-sub000/internal/jobstate"
)

// Hub is the central broadcast registry for stream clients. All
// mutations to the registry (register, unregister) are serialised
// through the Run event loop via channels, so Publish only ever needs a
// brief read-lock to copy the current target set before sending:
// grounded on the single-writer hub design used elsewhere for this kind
// of fan-out.
type Hub struct {
	clients map[*Client]struct{}
	topics  map[string]map[*Client]struct{}

	mu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
}

// NewHub creates an idle Hub. Call Run in its own goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		topics:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's event loop. It must be called exactly once, in
// its own goroutine, and exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			if h.topics[client.topic] == nil {
				h.topics[client.topic] = make(map[*Client]struct{})
			}
			h.topics[client.topic][client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				delete(h.topics[client.topic], client)
				if len(h.topics[client.topic]) == 0 {
					delete(h.topics, client.topic)
				}
				close(client.send)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]struct{})
			h.topics = make(map[string]map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Publish implements orchestrator.StatusPublisher: it broadcasts state
// to every client subscribed to its job topic. Safe to call from any
// goroutine, including concurrently from many orchestrator runs.
func (h *Hub) Publish(state jobstate.JobState) {
	topic := JobTopic(state.JobID)
	msg := Message{Type: MsgJobStatus, Topic: topic, Payload: state}

	h.mu.RLock()
	targets := h.topics[topic]
	clients := make([]*Client, 0, len(targets))
	for c := range targets {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// Client is too slow to keep up with its own job's updates:
			// disconnect it rather than stall other subscribers.
			h.unregister <- c
		}
	}
}

// Subscribe registers client with the hub.
func (h *Hub) Subscribe(client *Client) {
	h.register <- client
}

// Unsubscribe removes client from the hub.
func (h *Hub) Unsubscribe(client *Client) {
	h.unregister <- client
}
