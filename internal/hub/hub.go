package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/weiawesome/majex-chat/pkg/log"
)

// EventKind describes how hub membership changed.
type EventKind string

const (
	EventJoin  EventKind = "join"
	EventLeave EventKind = "leave"
	EventEvict EventKind = "evict"
)

// MembershipEvent is delivered to listeners after the membership lock has
// been released, so Count already reflects the change.
type MembershipEvent struct {
	Kind    EventKind
	Clients []*Client
	Count   int
}

// Listener observes membership changes.
type Listener interface {
	OnMembershipChange(ctx context.Context, event MembershipEvent)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event MembershipEvent)

func (f ListenerFunc) OnMembershipChange(ctx context.Context, event MembershipEvent) {
	f(ctx, event)
}

// Hub is the registry of connected clients.
type Hub struct {
	clients   map[*Client]struct{}
	listeners []Listener
	mu        sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// AddListener subscribes l to membership changes. Call before serving.
func (h *Hub) AddListener(l Listener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, l)
	h.mu.Unlock()
}

// Register adds client to the hub. Registering a client twice is a no-op.
func (h *Hub) Register(ctx context.Context, client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		h.mu.Unlock()
		return
	}
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldClientID, client.ID).Int(log.FieldOnline, count).Msg("client registered")

	h.notify(ctx, MembershipEvent{Kind: EventJoin, Clients: []*Client{client}, Count: count})
}

// Unregister removes client from the hub and reports whether it was still
// registered. It is safe to call any number of times.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	count := len(h.clients)
	h.mu.Unlock()

	client.close()
	if !ok {
		return false
	}

	l := client.Logger()
	l.Debug().Int(log.FieldOnline, count).Msg("client unregistered")

	ctx := log.WithLogger(context.Background(), l)
	h.notify(ctx, MembershipEvent{Kind: EventLeave, Clients: []*Client{client}, Count: count})
	return true
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast encodes message as JSON and delivers it to every registered
// client. It returns the number of clients that accepted the frame.
func (h *Hub) Broadcast(ctx context.Context, message interface{}) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, err
	}
	return h.BroadcastRaw(ctx, data), nil
}

// BroadcastRaw delivers data to a snapshot of the registered clients.
// Clients that cannot accept the frame are collected and evicted after the
// pass, followed by a single membership event.
func (h *Hub) BroadcastRaw(ctx context.Context, data []byte) int {
	recipients := h.snapshot()

	var failed []*Client
	delivered := 0
	for _, client := range recipients {
		if err := client.Enqueue(data); err != nil {
			l := client.Logger()
			l.Warn().Err(err).Msg("dropping unreachable client")
			failed = append(failed, client)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		h.evict(ctx, failed)
	}
	return delivered
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) evict(ctx context.Context, clients []*Client) {
	removed := make([]*Client, 0, len(clients))

	h.mu.Lock()
	for _, c := range clients {
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			removed = append(removed, c)
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if len(removed) == 0 {
		return
	}

	l := log.Ctx(ctx)
	l.Info().Int("evicted", len(removed)).Int(log.FieldOnline, count).Msg("evicted unreachable clients")

	h.notify(ctx, MembershipEvent{Kind: EventEvict, Clients: removed, Count: count})
}

// CloseAll removes every client without notifying listeners. Each client's
// write pump sends a close frame on its way out.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return len(clients)
}

func (h *Hub) notify(ctx context.Context, event MembershipEvent) {
	h.mu.RLock()
	listeners := make([]Listener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.RUnlock()

	for _, l := range listeners {
		l.OnMembershipChange(ctx, event)
	}
}
