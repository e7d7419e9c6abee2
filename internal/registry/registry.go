package registry

import (
	"errors"
	"sync"
)

// ErrUnreachable is returned by Send when the user has no live connection.
var ErrUnreachable = errors.New("registry: user is not connected")

// Client is the addressable handle for one live connection. The owning
// connection drains it in a write pump; the registry closes it when the entry
// is removed or superseded, which is the pump's signal to stop.
type Client chan []byte

// Registry maps user IDs to their live connection handle. It is the single
// source of truth for "is this user currently reachable" and holds at most
// one handle per user.
type Registry struct {
	conns map[string]Client
	mu    sync.RWMutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]Client),
	}
}

// Register inserts or replaces the entry for userID. A prior entry is
// superseded without error: its channel is closed so the orphaned
// connection's write pump terminates on its own. Reconnects therefore never
// need to coordinate with the connection they replace.
func (r *Registry) Register(userID string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.conns[userID]; ok && old != client {
		close(old)
	}
	r.conns[userID] = client
}

// Unregister removes the entry for userID only if it still holds the given
// handle. A disconnecting stale connection therefore cannot evict a newer one
// that has since reconnected. Absent or mismatched entries are a silent no-op.
func (r *Registry) Unregister(userID string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current == client {
		delete(r.conns, userID)
		close(current)
	}
}

// Lookup returns the live handle for userID, if any. It never blocks on I/O.
func (r *Registry) Lookup(userID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.conns[userID]
	return client, ok
}

// Send forwards payload to userID's live connection. It returns
// ErrUnreachable when the user has no entry and does not retry. The channel
// send is non-blocking: a slow consumer with a full buffer drops the frame
// rather than stalling the caller.
func (r *Registry) Send(userID string, payload []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.conns[userID]
	if !ok {
		return ErrUnreachable
	}

	select {
	case client <- payload:
	default:
		// Client buffer is full; the connection is slow or already dying.
		// Its own pump and the unregister path will clean it up.
	}
	return nil
}

// Reply delivers payload to client only while it is still the current entry
// for userID. Connection-owned code must use this instead of sending on the
// channel directly: a reconnect can supersede the entry at any moment, and
// closing happens under the registry lock, so only a send under the same lock
// is safe. A superseded or removed handle yields ErrUnreachable.
func (r *Registry) Reply(userID string, client Client, payload []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current, ok := r.conns[userID]
	if !ok || current != client {
		return ErrUnreachable
	}

	select {
	case client <- payload:
	default:
	}
	return nil
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// Close tears the registry down, closing every handle and clearing the map.
// Called on server shutdown so connection cleanup does not rely on process
// exit.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, client := range r.conns {
		close(client)
		delete(r.conns, userID)
	}
}
