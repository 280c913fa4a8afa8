// Package live holds the process-local registries behind the real-time
// layer: connections, presence, room membership and per-user room state.
// All of it is advisory and lost on restart; the persisted game record
// stays the source of truth for anything with consequences.
package live

import (
	"sync"
	"time"
)

// Sender is the write side of a transport connection. Send must be safe
// for concurrent use; Alive reports whether the transport is still open.
type Sender interface {
	Send(v interface{}) error
	Alive() bool
}

// Conn is one live transport connection bound to a user.
type Conn struct {
	ID       string
	UserID   string
	Name     string
	RoomCode string
	LastSeen time.Time
	sender   Sender
}

func (c *Conn) Send(v interface{}) error { return c.sender.Send(v) }
func (c *Conn) Alive() bool              { return c.sender.Alive() }

// Registry maps connection → identity and identity → connections. A user
// may hold many connections at once (one per tab).
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	byUser map[string]map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  map[string]*Conn{},
		byUser: map[string]map[string]*Conn{},
	}
}

func (r *Registry) Register(connID, userID, name string, s Sender) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Conn{ID: connID, UserID: userID, Name: name, LastSeen: time.Now(), sender: s}
	r.conns[connID] = c
	if r.byUser[userID] == nil {
		r.byUser[userID] = map[string]*Conn{}
	}
	r.byUser[userID][connID] = c
	return c
}

// Unregister removes the connection and returns it, or nil when unknown.
func (r *Registry) Unregister(connID string) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	delete(r.conns, connID)
	if peers := r.byUser[c.UserID]; peers != nil {
		delete(peers, connID)
		if len(peers) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	return c
}

func (r *Registry) Get(connID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

// ForUser snapshots every live connection owned by userID.
func (r *Registry) ForUser(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.byUser[userID]))
	for _, c := range r.byUser[userID] {
		out = append(out, c)
	}
	return out
}

func (r *Registry) SetRoom(connID, roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[connID]; ok {
		c.RoomCode = roomCode
	}
}

func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[connID]; ok {
		c.LastSeen = time.Now()
	}
}

// Snapshot copies the full connection list for global fan-out, so the
// caller never iterates the live map while it mutates.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
