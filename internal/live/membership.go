package live

import (
	"log"
	"sync"
)

// Membership is the broadcast fan-out index: room → connections currently
// in it. It is distinct from the persisted participant list; a seated
// player can be absent here between disconnect and reconnect.
type Membership struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Conn
}

func NewMembership() *Membership {
	return &Membership{rooms: map[string]map[string]*Conn{}}
}

// Join adds the connection to the room's fan-out set and reports whether
// it was absent before.
func (m *Membership) Join(roomCode string, c *Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[roomCode] == nil {
		m.rooms[roomCode] = map[string]*Conn{}
	}
	if _, ok := m.rooms[roomCode][c.ID]; ok {
		return false
	}
	m.rooms[roomCode][c.ID] = c
	return true
}

func (m *Membership) Leave(roomCode, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, ok := m.rooms[roomCode]
	if !ok {
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(m.rooms, roomCode)
	}
}

// Clear drops the room's entire entry, e.g. after an abandonment notice.
func (m *Membership) Clear(roomCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomCode)
}

func (m *Membership) Members(roomCode string) []*Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Conn, 0, len(m.rooms[roomCode]))
	for _, c := range m.rooms[roomCode] {
		out = append(out, c)
	}
	return out
}

// UniqueUsers lists the distinct user ids present in the room, collapsing
// multi-tab duplicates.
func (m *Membership) UniqueUsers(roomCode string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, c := range m.rooms[roomCode] {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		out = append(out, c.UserID)
	}
	return out
}

// Broadcast sends payload to every member of the room except excludeConnID.
// Connections whose transport already closed are skipped; a connection can
// die between snapshot and write.
func (m *Membership) Broadcast(roomCode string, payload interface{}, excludeConnID string) {
	for _, c := range m.Members(roomCode) {
		if c.ID == excludeConnID || !c.Alive() {
			continue
		}
		if err := c.Send(payload); err != nil {
			log.Printf("broadcast to %s in room %s failed: %v", c.ID, roomCode, err)
		}
	}
}
