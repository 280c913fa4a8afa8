package live

import (
	"sync"
	"time"
)

// OnlineUser exists iff at least one connection for the user is open.
type OnlineUser struct {
	UserID   string
	Name     string
	RoomCode string
	LastSeen time.Time
}

// Presence derives "who is online" from connection lifecycle events.
// Whether a closing connection really takes its user offline is decided
// elsewhere (room.Recovery); this type only keeps the map.
type Presence struct {
	mu    sync.RWMutex
	users map[string]*OnlineUser
}

func NewPresence() *Presence {
	return &Presence{users: map[string]*OnlineUser{}}
}

// MarkOnline records the user and reports whether they were offline before.
func (p *Presence) MarkOnline(userID, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[userID]; ok {
		u.LastSeen = time.Now()
		if name != "" {
			u.Name = name
		}
		return false
	}
	p.users[userID] = &OnlineUser{UserID: userID, Name: name, LastSeen: time.Now()}
	return true
}

func (p *Presence) Touch(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[userID]; ok {
		u.LastSeen = time.Now()
	}
}

func (p *Presence) SetRoom(userID, roomCode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[userID]; ok {
		u.RoomCode = roomCode
		u.LastSeen = time.Now()
	}
}

// Remove takes the user offline and reports whether they were online.
func (p *Presence) Remove(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[userID]; !ok {
		return false
	}
	delete(p.users, userID)
	return true
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[userID]
	return ok
}

func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}
