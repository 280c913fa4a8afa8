package room

import (
	"log"
	"sync"
	"time"

	"tictactoe-arena/internal/game"
	"tictactoe-arena/internal/live"
	"tictactoe-arena/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type queueEntry struct {
	userID   string
	name     string
	queuedAt time.Time
}

// Matchmaker pairs waiting users strictly FIFO, two at a time. A user
// whose timer fires before a human arrives gets a scripted opponent
// instead. The mutex makes "check length then dequeue two" atomic, and
// pairing cancels both fallback timers before the handoff: a user is
// never matched with a human and a bot at once.
type Matchmaker struct {
	mu     sync.Mutex
	queue  []queueEntry
	timers map[string]*time.Timer
	mgr    *Manager
}

func NewMatchmaker(mgr *Manager) *Matchmaker {
	return &Matchmaker{
		timers: map[string]*time.Timer{},
		mgr:    mgr,
	}
}

// Enqueue adds the user at the tail. Re-queueing while already waiting is
// an idempotent no-op.
func (mm *Matchmaker) Enqueue(userID, name string) {
	mm.mu.Lock()
	for _, e := range mm.queue {
		if e.userID == userID {
			mm.mu.Unlock()
			return
		}
	}
	mm.queue = append(mm.queue, queueEntry{userID: userID, name: name, queuedAt: time.Now()})
	mm.timers[userID] = time.AfterFunc(mm.mgr.cfg.MatchTimeout, func() {
		mm.timeout(userID)
	})

	var a, b queueEntry
	paired := false
	if len(mm.queue) >= 2 {
		a, b = mm.queue[0], mm.queue[1]
		mm.queue = mm.queue[2:]
		mm.stopTimerLocked(a.userID)
		mm.stopTimerLocked(b.userID)
		paired = true
	}
	mm.mu.Unlock()

	if paired {
		if err := mm.mgr.PairMatch(a.userID, a.name, b.userID, b.name); err != nil {
			log.Printf("pair %s with %s: %v", a.userID, b.userID, err)
		}
	}
}

// Cancel removes the user from the queue; idempotent.
func (mm *Matchmaker) Cancel(userID string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.removeLocked(userID)
	mm.stopTimerLocked(userID)
}

func (mm *Matchmaker) Waiting() int {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return len(mm.queue)
}

func (mm *Matchmaker) removeLocked(userID string) bool {
	for i, e := range mm.queue {
		if e.userID == userID {
			mm.queue = append(mm.queue[:i], mm.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (mm *Matchmaker) stopTimerLocked(userID string) {
	if t, ok := mm.timers[userID]; ok {
		t.Stop()
		delete(mm.timers, userID)
	}
}

// timeout fires the bot fallback. The entry may already be gone if a
// pairing won the race; then this is a no-op.
func (mm *Matchmaker) timeout(userID string) {
	mm.mu.Lock()
	var name string
	found := false
	for _, e := range mm.queue {
		if e.userID == userID {
			name = e.name
			found = true
			break
		}
	}
	if found {
		mm.removeLocked(userID)
	}
	delete(mm.timers, userID)
	mm.mu.Unlock()

	if !found {
		return
	}
	difficulty := game.Difficulties[mm.mgr.randIntn(len(game.Difficulties))]
	if err := mm.mgr.BotMatch(userID, name, difficulty); err != nil {
		log.Printf("bot fallback for %s: %v", userID, err)
	}
}

// PairMatch creates the room and game for two humans handed off by the
// queue, seats their live connections, and announces the match.
func (m *Manager) PairMatch(aID, aName, bID, bName string) error {
	r, err := m.CreateRoom(aID, aName)
	if err != nil {
		return err
	}
	if err := m.store.UpsertUser(bID, bName); err != nil {
		return err
	}
	r.GuestID = bID
	r.GuestName = bName
	if err := m.store.SaveRoom(r); err != nil {
		return err
	}

	m.seatLive(r.Code, aID, bID)
	m.notifyMatchFound(r, aID, bID)

	_, err = m.createGame(r, aID, aName, bID, bName, "", "")
	return err
}

// BotMatch creates a room and game for a lone user against a scripted
// opponent drawn from the requested difficulty tier's persona pool.
func (m *Manager) BotMatch(userID, name, difficulty string) error {
	r, err := m.CreateRoom(userID, name)
	if err != nil {
		return err
	}
	m.rngMu.Lock()
	persona := game.PickPersona(difficulty, m.rng)
	m.rngMu.Unlock()
	botID := "bot-" + uuid.NewString()
	r.GuestID = botID
	r.GuestName = persona.Name
	if err := m.store.SaveRoom(r); err != nil {
		return err
	}

	m.seatLive(r.Code, userID)
	m.notifyMatchFound(r, userID)

	_, err = m.createGame(r, userID, name, botID, persona.Name, difficulty, persona.ProfileImage)
	return err
}

// seatLive moves every live connection of the given users into the
// room's membership entry.
func (m *Manager) seatLive(roomCode string, userIDs ...string) {
	for _, userID := range userIDs {
		m.states.Set(userID, live.UserRoomState{RoomCode: roomCode})
		m.presence.SetRoom(userID, roomCode)
		for _, c := range m.reg.ForUser(userID) {
			m.members.Join(roomCode, c)
			m.reg.SetRoom(c.ID, roomCode)
		}
	}
}

func (m *Manager) notifyMatchFound(r *store.Room, userIDs ...string) {
	payload := gin.H{"type": "match_found", "room": r}
	for _, userID := range userIDs {
		for _, c := range m.reg.ForUser(userID) {
			if !c.Alive() {
				continue
			}
			if err := c.Send(payload); err != nil {
				log.Printf("match_found to %s: %v", c.ID, err)
			}
		}
	}
}
