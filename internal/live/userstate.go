package live

import "sync"

// UserRoomState caches where a user is and whether they are mid-game, so
// reconnection decisions do not always hit storage. It can go stale
// against the persisted game record and is never trusted alone for
// abandonment decisions.
type UserRoomState struct {
	RoomCode string
	GameID   string
	InGame   bool
}

type RoomStates struct {
	mu     sync.RWMutex
	byUser map[string]UserRoomState
}

func NewRoomStates() *RoomStates {
	return &RoomStates{byUser: map[string]UserRoomState{}}
}

func (s *RoomStates) Set(userID string, st UserRoomState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = st
}

func (s *RoomStates) Get(userID string) (UserRoomState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byUser[userID]
	return st, ok
}

func (s *RoomStates) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}

// ClearGame drops the in-game flag for everyone attached to gameID,
// keeping their room association.
func (s *RoomStates) ClearGame(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range s.byUser {
		if st.GameID == gameID {
			st.GameID = ""
			st.InGame = false
			s.byUser[id] = st
		}
	}
}
