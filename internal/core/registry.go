package core

import (
	"fmt"
	"sync"

	"github.com/courtside-live/broadcast-server/internal/metrics"
)

// Registry is the single source of truth for connected clients and their
// subscription state. All operations are total over the keyspace: removal
// and subscription changes for unknown ids are silent no-ops, because the
// transport close path and a health eviction may race to remove the same
// client.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Add inserts a new client and promotes it to OPEN. Duplicate ids fail the
// add and leave the existing entry untouched.
func (r *Registry) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateClient, c.ID)
	}
	r.clients[c.ID] = c
	c.open()
	metrics.ActiveClients.Set(float64(len(r.clients)))
	return nil
}

// Remove deletes a client, driving it to CLOSED, and returns it. Returns
// nil if the id was not present.
func (r *Registry) Remove(id string) *Client {
	r.mu.Lock()
	c, exists := r.clients[id]
	if exists {
		delete(r.clients, id)
	}
	n := len(r.clients)
	r.mu.Unlock()

	if !exists {
		return nil
	}
	c.beginClose()
	c.finishClose()
	metrics.ActiveClients.Set(float64(n))
	return c
}

// Get looks up a client by id.
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ForEach visits a snapshot of the current clients. Visiting a snapshot
// means concurrent removal cannot corrupt iteration or skip unrelated
// entries; the visitor must tolerate clients that closed mid-iteration.
func (r *Registry) ForEach(visit func(*Client)) {
	r.mu.RLock()
	snapshot := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		visit(c)
	}
}

// Subscribe adds channels to one client's subscription set. Unknown ids are
// ignored.
func (r *Registry) Subscribe(id string, channels []string) {
	if c, ok := r.Get(id); ok {
		c.Subscribe(channels...)
	}
}

// Unsubscribe removes channels from one client's subscription set. Unknown
// ids are ignored.
func (r *Registry) Unsubscribe(id string, channels []string) {
	if c, ok := r.Get(id); ok {
		c.Unsubscribe(channels...)
	}
}
