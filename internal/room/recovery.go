package room

import (
	"errors"
	"log"
	"sync"
	"time"

	"tictactoe-arena/internal/live"
	"tictactoe-arena/internal/store"

	"github.com/gin-gonic/gin"
)

// Recovery intercepts connection open/close events and decides whether a
// user's game should be preserved, restored, or terminated. It is the
// only place allowed to declare a user genuinely gone.
type Recovery struct {
	mgr *Manager

	mu           sync.Mutex
	lastSnapshot map[string]time.Time
}

func NewRecovery(mgr *Manager) *Recovery {
	r := &Recovery{mgr: mgr, lastSnapshot: map[string]time.Time{}}
	mgr.SetRecovery(r)
	return r
}

// HandleConnect runs after the auth handshake. It updates presence and,
// when the user left an active game behind, either expires it or
// restores their view of it.
func (r *Recovery) HandleConnect(c *live.Conn) {
	if r.mgr.presence.MarkOnline(c.UserID, c.Name) {
		r.broadcastOnlineCount()
	} else {
		r.mgr.presence.Touch(c.UserID)
	}

	g := r.activeGameFor(c.UserID)
	if g == nil {
		return
	}

	if time.Since(g.LastMoveAt) > r.mgr.cfg.ExpireAfter {
		final, err := r.mgr.ExpireGame(g, false)
		if err != nil {
			if !errors.Is(err, store.ErrStatusConflict) {
				log.Printf("expire stale game %s on reconnect: %v", g.ID, err)
			}
			return
		}
		// Only the returning client hears about it; nobody else was there.
		r.send(c, gin.H{
			"type":    "game_expired",
			"gameId":  final.ID,
			"roomId":  final.RoomCode,
			"message": "Your game expired while you were away",
		})
		r.mgr.states.Clear(c.UserID)
		return
	}

	r.restore(c, g)
}

// activeGameFor consults the in-memory cache first, then the persisted
// record. The cache alone is never trusted: it can be stale either way.
func (r *Recovery) activeGameFor(userID string) *store.Game {
	if st, ok := r.mgr.states.Get(userID); ok && st.InGame && st.GameID != "" {
		g, err := r.mgr.store.GetGame(st.GameID)
		if err == nil && g.Status == store.GameActive {
			return g
		}
		r.mgr.states.ClearGame(st.GameID)
	}
	g, err := r.mgr.store.ActiveGameForUser(userID)
	if err != nil {
		return nil
	}
	return g
}

// restore re-seats the connection and replays the game state: a room
// context message first, the full snapshot after a short delay so the
// client applies them in order. A debounce window keeps two tabs
// reconnecting together from producing two snapshots.
func (r *Recovery) restore(c *live.Conn, g *store.Game) {
	r.mgr.members.Join(g.RoomCode, c)
	r.mgr.reg.SetRoom(c.ID, g.RoomCode)
	r.mgr.presence.SetRoom(c.UserID, g.RoomCode)
	r.mgr.states.Set(c.UserID, live.UserRoomState{RoomCode: g.RoomCode, GameID: g.ID, InGame: true})

	r.mu.Lock()
	if last, ok := r.lastSnapshot[c.UserID]; ok && time.Since(last) < r.mgr.cfg.ReconnectDebounce {
		r.mu.Unlock()
		return
	}
	r.lastSnapshot[c.UserID] = time.Now()
	r.mu.Unlock()

	if rm, err := r.mgr.store.GetRoom(g.RoomCode); err == nil {
		r.send(c, gin.H{"type": "match_found", "room": rm})
	}

	gameID := g.ID
	time.AfterFunc(r.mgr.cfg.ReconnectSnapshotDelay, func() {
		if !c.Alive() {
			return
		}
		gg, err := r.mgr.store.GetGame(gameID)
		if err != nil || gg.Status != store.GameActive {
			return
		}
		remaining := r.mgr.cfg.ExpireAfter - time.Since(gg.LastMoveAt)
		if remaining < 0 {
			remaining = 0
		}
		r.send(c, gin.H{
			"type":          "game_reconnection",
			"roomId":        gg.RoomCode,
			"game":          r.mgr.gameView(gg),
			"remainingTime": remaining.Milliseconds(),
			"message":       "Welcome back, game restored",
		})
	})

	opponent := g.PlayerXID
	if opponent == c.UserID {
		opponent = g.PlayerOID
	}
	if humanID(opponent) == "" {
		return
	}
	name := c.Name
	payload := gin.H{
		"type":       "player_reconnected",
		"userId":     c.UserID,
		"playerName": name,
		"message":    name + " reconnected",
	}
	for _, oc := range r.mgr.reg.ForUser(opponent) {
		r.send(oc, payload)
	}
}

// HandleDisconnect runs when a transport closes, for any reason.
func (r *Recovery) HandleDisconnect(connID string) {
	c := r.mgr.reg.Unregister(connID)
	if c == nil {
		return
	}
	if c.RoomCode != "" {
		r.mgr.members.Leave(c.RoomCode, connID)
	}
	r.Reconcile(c.UserID)
}

// Reconcile is the single decision point for "is this user really
// gone". Every exit path funnels through it: connection close, explicit
// leave, and the expiration sweep.
func (r *Recovery) Reconcile(userID string) {
	if len(r.mgr.reg.ForUser(userID)) > 0 {
		// Another tab is still open; bookkeeping only.
		r.mgr.presence.Touch(userID)
		return
	}

	if st, ok := r.mgr.states.Get(userID); ok && st.InGame && st.GameID != "" {
		g, err := r.mgr.store.GetGame(st.GameID)
		if err == nil && g.Status == store.GameActive {
			// Mid-game with no sockets left: tolerate the blip. The
			// sweep or a reconnect settles it later.
			return
		}
	}
	// The cache can lose the game association (a rejoin rewrites it);
	// the persisted record has the last word before anyone goes offline.
	if _, err := r.mgr.store.ActiveGameForUser(userID); err == nil {
		return
	}

	r.mgr.states.Clear(userID)
	r.mu.Lock()
	delete(r.lastSnapshot, userID)
	r.mu.Unlock()
	if r.mgr.presence.Remove(userID) {
		r.broadcastOnlineCount()
		r.broadcastAll(gin.H{"type": "user_offline", "userId": userID})
	}
}

func (r *Recovery) broadcastOnlineCount() {
	r.broadcastAll(gin.H{
		"type":  "online_users_update",
		"count": r.mgr.presence.Count(),
	})
}

func (r *Recovery) broadcastAll(payload gin.H) {
	for _, c := range r.mgr.reg.Snapshot() {
		r.send(c, payload)
	}
}

func (r *Recovery) send(c *live.Conn, payload gin.H) {
	if !c.Alive() {
		return
	}
	if err := c.Send(payload); err != nil {
		log.Printf("send %s to %s: %v", payload["type"], c.ID, err)
	}
}
