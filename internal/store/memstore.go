package store

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is the mutex-map Store used in tests and when no database
// is configured. Behavior matches GormStore, including the atomic
// transition guarantee.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	games map[string]*Game
	moves map[string][]Move
	users map[string]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: map[string]*Room{},
		games: map[string]*Game{},
		moves: map[string][]Move{},
		users: map[string]*User{},
	}
}

func (m *MemoryStore) CreateRoom(r *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rooms[r.Code] = &cp
	return nil
}

func (m *MemoryStore) GetRoom(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) SaveRoom(r *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[r.Code]; !ok {
		return ErrNotFound
	}
	cp := *r
	m.rooms[r.Code] = &cp
	return nil
}

func (m *MemoryStore) SetRoomStatus(code string, status RoomStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *MemoryStore) CreateGame(g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *MemoryStore) GetGame(id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *MemoryStore) ActiveGameForRoom(roomCode string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.games {
		if g.RoomCode == roomCode && g.Status == GameActive {
			cp := *g
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ActiveGameForUser(userID string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.games {
		if g.Status == GameActive && g.Seated(userID) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ActiveGamesOlderThan(cutoff time.Time) ([]Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Game
	for _, g := range m.games {
		if g.Status == GameActive && g.LastMoveAt.Before(cutoff) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveGame(g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return ErrNotFound
	}
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *MemoryStore) TransitionGame(id string, to GameStatus, winner *string, reason string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	if g.Status != GameActive {
		return nil, ErrStatusConflict
	}
	g.Status = to
	g.Winner = winner
	g.WinReason = reason
	cp := *g
	return &cp, nil
}

func (m *MemoryStore) AppendMove(mv *Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv.ID = uint(len(m.moves[mv.GameID]) + 1)
	m.moves[mv.GameID] = append(m.moves[mv.GameID], *mv)
	return nil
}

func (m *MemoryStore) MovesForGame(gameID string) ([]Move, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Move(nil), m.moves[gameID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemoryStore) UpsertUser(id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		m.users[id] = &User{ID: id, Name: name}
		return nil
	}
	if name != "" {
		u.Name = name
	}
	return nil
}

func (m *MemoryStore) GetUser(id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) RecordResult(winnerID, loserID string, draw bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bump := func(id string, f func(*User)) {
		if id == "" {
			return
		}
		u, ok := m.users[id]
		if !ok {
			u = &User{ID: id}
			m.users[id] = u
		}
		f(u)
	}
	if draw {
		bump(winnerID, func(u *User) { u.Draws++ })
		bump(loserID, func(u *User) { u.Draws++ })
		return nil
	}
	bump(winnerID, func(u *User) { u.Wins++ })
	bump(loserID, func(u *User) { u.Losses++ })
	return nil
}
