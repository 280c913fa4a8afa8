package room

import (
	"errors"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"tictactoe-arena/internal/config"
	"tictactoe-arena/internal/game"
	"tictactoe-arena/internal/live"
	"tictactoe-arena/internal/shared"
	"tictactoe-arena/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Manager owns room lifecycle and the per-game turn state machine. All
// registries are injected; nothing here is package-global.
type Manager struct {
	store    store.Store
	cfg      config.Config
	reg      *live.Registry
	presence *live.Presence
	members  *live.Membership
	states   *live.RoomStates
	recovery *Recovery

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	botTimers map[string]*time.Timer

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewManager(s store.Store, cfg config.Config, reg *live.Registry, presence *live.Presence, members *live.Membership, states *live.RoomStates) *Manager {
	return &Manager{
		store:     s,
		cfg:       cfg,
		reg:       reg,
		presence:  presence,
		members:   members,
		states:    states,
		locks:     map[string]*sync.Mutex{},
		botTimers: map[string]*time.Timer{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRecovery wires the recovery component in after construction; the two
// reference each other.
func (m *Manager) SetRecovery(r *Recovery) { m.recovery = r }

// lock serializes mutating operations on one entity ("game:<id>" or
// "room:<code>").
func (m *Manager) lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Manager) randIntn(n int) int {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Intn(n)
}

const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (m *Manager) randCode(n int) string {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[m.rng.Intn(len(letters))]
	}
	return string(b)
}

// ---- rooms ----

func (m *Manager) CreateRoom(ownerID, ownerName string) (*store.Room, error) {
	if err := m.store.UpsertUser(ownerID, ownerName); err != nil {
		return nil, err
	}
	r := &store.Room{
		Code:      m.randCode(6),
		OwnerID:   ownerID,
		Status:    store.RoomWaiting,
		CreatedAt: time.Now(),
	}
	if err := m.store.CreateRoom(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (m *Manager) GetRoom(code string) (*store.Room, error) {
	r, err := m.store.GetRoom(code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return r, err
}

// JoinRoom seats the user if a seat is free, otherwise admits them as a
// spectator. Rejoining while already seated is an idempotent success.
// conn may be nil for the HTTP surface; the live membership entry is then
// added when the websocket sends join_room.
func (m *Manager) JoinRoom(code, userID, name string, conn *live.Conn) (*store.Room, error) {
	unlock := m.lock("room:" + code)
	defer unlock()

	r, err := m.GetRoom(code)
	if err != nil {
		return nil, err
	}
	if err := m.store.UpsertUser(userID, name); err != nil {
		return nil, err
	}

	seated := userID == r.OwnerID || userID == r.GuestID
	newSeat := false
	if !seated && r.GuestID == "" {
		r.GuestID = userID
		r.GuestName = name
		if err := m.store.SaveRoom(r); err != nil {
			return nil, err
		}
		seated = true
		newSeat = true
	}

	// A rejoin mid-game must not wipe the cached game association.
	if st, ok := m.states.Get(userID); !ok || st.RoomCode != code {
		m.states.Set(userID, live.UserRoomState{RoomCode: code})
	}
	m.presence.SetRoom(userID, code)
	newMember := false
	if conn != nil {
		newMember = m.members.Join(code, conn)
		m.reg.SetRoom(conn.ID, code)
	}

	if newSeat || newMember {
		exclude := ""
		if conn != nil {
			exclude = conn.ID
		}
		m.members.Broadcast(code, gin.H{
			"type":   "user_joined",
			"userId": userID,
			"roomId": code,
			"userInfo": shared.PlayerInfo{
				ID:   userID,
				Name: name,
			},
		}, exclude)
	}
	return r, nil
}

// LeaveRoom is the explicit departure path. Unlike a bare disconnect it
// immediately abandons any active game the leaver is seated in.
func (m *Manager) LeaveRoom(code, userID string) error {
	if _, err := m.GetRoom(code); err != nil {
		return err
	}

	g, gerr := m.store.ActiveGameForRoom(code)
	if gerr == nil && g.Seated(userID) {
		if err := m.AbandonGame(g, userID); err != nil && !errors.Is(err, store.ErrStatusConflict) {
			return err
		}
	} else {
		name := userID
		if u, uerr := m.store.GetUser(userID); uerr == nil {
			name = u.Name
		}
		m.members.Broadcast(code, gin.H{
			"type":       "room_ended",
			"roomId":     code,
			"userId":     userID,
			"playerName": name,
			"message":    name + " left the room",
		}, "")
		for _, c := range m.reg.ForUser(userID) {
			m.members.Leave(code, c.ID)
			m.reg.SetRoom(c.ID, "")
		}
	}

	m.states.Clear(userID)
	m.presence.SetRoom(userID, "")
	if m.recovery != nil {
		m.recovery.Reconcile(userID)
	}
	return nil
}

// ---- game creation ----

// assignMarkers gives X (first mover) to the lexicographically smaller
// id. Arbitrary, but stable across "play again" in the same room.
func assignMarkers(aID, aName, bID, bName string) (xID, xName, oID, oName string) {
	if aID < bID {
		return aID, aName, bID, bName
	}
	return bID, bName, aID, aName
}

// StartGame creates the active game for a room, or returns the existing
// one: multiple near-simultaneous start clicks must not create two games.
func (m *Manager) StartGame(code, userID string) (*store.Game, bool, error) {
	unlock := m.lock("room:" + code)
	defer unlock()

	r, err := m.GetRoom(code)
	if err != nil {
		return nil, false, err
	}
	if userID != r.OwnerID && userID != r.GuestID {
		return nil, false, ErrForbidden
	}
	if r.GuestID == "" {
		return nil, false, ErrInvalidState
	}

	if g, err := m.store.ActiveGameForRoom(code); err == nil {
		return g, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	ownerName, guestName := r.OwnerID, r.GuestID
	if u, err := m.store.GetUser(r.OwnerID); err == nil {
		ownerName = u.Name
	}
	if u, err := m.store.GetUser(r.GuestID); err == nil {
		guestName = u.Name
	}

	g, err := m.createGame(r, r.OwnerID, ownerName, r.GuestID, guestName, "", "")
	if err != nil {
		return nil, false, err
	}
	return g, true, nil
}

func (m *Manager) createGame(r *store.Room, aID, aName, bID, bName, difficulty, botImage string) (*store.Game, error) {
	xID, xName, oID, oName := assignMarkers(aID, aName, bID, bName)
	now := time.Now()
	g := &store.Game{
		ID:            uuid.NewString(),
		RoomCode:      r.Code,
		PlayerXID:     xID,
		PlayerXName:   xName,
		PlayerOID:     oID,
		PlayerOName:   oName,
		OpponentBot:   difficulty != "",
		BotDifficulty: difficulty,
		BotImage:      botImage,
		CurrentTurn:   shared.MarkerX,
		Board:         game.NewBoard().Encode(),
		Status:        store.GameActive,
		CreatedAt:     now,
		LastMoveAt:    now,
	}
	if err := m.store.CreateGame(g); err != nil {
		return nil, err
	}
	if err := m.store.SetRoomStatus(r.Code, store.RoomPlaying); err != nil {
		return nil, err
	}

	for _, id := range []string{xID, oID} {
		if isBotID(id) {
			continue
		}
		m.states.Set(id, live.UserRoomState{RoomCode: r.Code, GameID: g.ID, InGame: true})
	}

	m.members.Broadcast(r.Code, gin.H{
		"type":   "game_started",
		"roomId": r.Code,
		"game":   m.gameView(g),
	}, "")

	if isBotID(g.PlayerXID) {
		m.scheduleBotMove(g)
	}
	return g, nil
}

func isBotID(id string) bool { return strings.HasPrefix(id, "bot-") }

// humanID filters bot ids out of aggregate-record updates.
func humanID(id string) string {
	if isBotID(id) {
		return ""
	}
	return id
}

// ---- move submission ----

// SubmitMove validates and applies one move. Bot replies come through
// here too, self-issued, so they are validated exactly like human moves.
func (m *Manager) SubmitMove(gameID, userID string, position int) (*store.Game, error) {
	unlock := m.lock("game:" + gameID)
	defer unlock()

	// Re-fetch under the lock: the authoritative record may have moved
	// on between the caller's read and this write.
	g, err := m.store.GetGame(gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	if g.Status != store.GameActive {
		return nil, ErrInvalidState
	}
	if !g.Seated(userID) {
		return nil, ErrForbidden
	}
	marker := g.MarkerOf(userID)
	if marker != g.CurrentTurn {
		return nil, ErrWrongTurn
	}
	board := game.DecodeBoard(g.Board)
	if position < 0 || position >= game.Cells || board.Occupied(position) {
		return nil, ErrInvalidMove
	}

	board[position] = marker
	seq := len(board)
	mv := &store.Move{
		GameID:   gameID,
		PlayerID: userID,
		Position: position,
		Marker:   marker,
		Seq:      seq,
		PlayedAt: time.Now(),
	}
	if err := m.store.AppendMove(mv); err != nil {
		return nil, err
	}

	g.Board = board.Encode()
	g.LastMoveAt = time.Now()

	res, winLine := game.Evaluate(board, marker)
	switch res {
	case game.ResultWin:
		return m.finishWin(g, board, userID, marker, position, winLine)
	case game.ResultDraw:
		return m.finishDraw(g, board)
	}

	g.CurrentTurn = marker.Other()
	if err := m.store.SaveGame(g); err != nil {
		return nil, err
	}

	xInfo, oInfo := m.playerInfos(g)
	m.members.Broadcast(g.RoomCode, gin.H{
		"type":          "move",
		"gameId":        g.ID,
		"roomId":        g.RoomCode,
		"position":      position,
		"player":        marker,
		"board":         board,
		"currentPlayer": g.CurrentTurn,
		"playerXInfo":   xInfo,
		"playerOInfo":   oInfo,
	}, "")

	if g.OpponentBot && isBotID(m.seatOf(g, g.CurrentTurn)) {
		m.scheduleBotMove(g)
	}
	return g, nil
}

func (m *Manager) seatOf(g *store.Game, marker shared.Marker) string {
	if marker == shared.MarkerX {
		return g.PlayerXID
	}
	return g.PlayerOID
}

// finishWin persists the terminal state first, then sends the two-stage
// result: the winning move right away for the highlight animation, the
// authoritative game_over after a fixed gap. The gap is a scheduled
// continuation, never a blocking sleep.
func (m *Manager) finishWin(g *store.Game, board game.Board, winnerID string, marker shared.Marker, position int, winLine []int) (*store.Game, error) {
	if err := m.store.SaveGame(g); err != nil {
		return nil, err
	}
	winner := winnerID
	final, err := m.store.TransitionGame(g.ID, store.GameFinished, &winner, "win")
	if err != nil {
		return nil, err
	}
	m.afterTerminal(final)

	loserID := final.PlayerXID
	if loserID == winnerID {
		loserID = final.PlayerOID
	}
	if err := m.store.RecordResult(humanID(winnerID), humanID(loserID), false); err != nil {
		log.Printf("record result for game %s: %v", g.ID, err)
	}

	m.members.Broadcast(final.RoomCode, gin.H{
		"type":             "winning_move",
		"gameId":           final.ID,
		"position":         position,
		"player":           marker,
		"board":            board,
		"winningPositions": winLine,
	}, "")

	roomCode, gameID := final.RoomCode, final.ID
	time.AfterFunc(m.cfg.WinRevealDelay, func() {
		// The room can be torn down while the timer is pending.
		if _, err := m.store.GetRoom(roomCode); err != nil {
			return
		}
		gg, err := m.store.GetGame(gameID)
		if err != nil {
			return
		}
		xInfo, oInfo := m.playerInfos(gg)
		winnerInfo := xInfo
		if gg.Winner != nil && *gg.Winner == gg.PlayerOID {
			winnerInfo = oInfo
		}
		m.members.Broadcast(roomCode, gin.H{
			"type":        "game_over",
			"gameId":      gg.ID,
			"winner":      gg.Winner,
			"condition":   "win",
			"board":       game.DecodeBoard(gg.Board),
			"winnerInfo":  winnerInfo,
			"playerXInfo": xInfo,
			"playerOInfo": oInfo,
		}, "")
	})
	return final, nil
}

func (m *Manager) finishDraw(g *store.Game, board game.Board) (*store.Game, error) {
	if err := m.store.SaveGame(g); err != nil {
		return nil, err
	}
	final, err := m.store.TransitionGame(g.ID, store.GameFinished, nil, "draw")
	if err != nil {
		return nil, err
	}
	m.afterTerminal(final)

	if err := m.store.RecordResult(humanID(final.PlayerXID), humanID(final.PlayerOID), true); err != nil {
		log.Printf("record result for game %s: %v", g.ID, err)
	}

	xInfo, oInfo := m.playerInfos(final)
	m.members.Broadcast(final.RoomCode, gin.H{
		"type":        "game_over",
		"gameId":      final.ID,
		"winner":      nil,
		"condition":   "draw",
		"board":       board,
		"playerXInfo": xInfo,
		"playerOInfo": oInfo,
	}, "")
	return final, nil
}

// afterTerminal does the bookkeeping shared by every terminal
// transition: room back to waiting, in-game flags cleared, any pending
// bot reply cancelled. The game's lock entry is dropped too; once the
// status is terminal every later acquirer re-reads the record and
// rejects, so a fresh mutex cannot race a stale one into a write.
func (m *Manager) afterTerminal(g *store.Game) {
	if err := m.store.SetRoomStatus(g.RoomCode, store.RoomWaiting); err != nil {
		log.Printf("flip room %s to waiting: %v", g.RoomCode, err)
	}
	m.states.ClearGame(g.ID)
	m.cancelBotTimer(g.ID)
	m.mu.Lock()
	delete(m.locks, "game:"+g.ID)
	m.mu.Unlock()
}

// ---- abandonment & expiry ----

// AbandonGame terminates an active game because a seated player left
// explicitly. One notice per unique user, then the membership entry goes
// away entirely.
func (m *Manager) AbandonGame(g *store.Game, leaverID string) error {
	unlock := m.lock("game:" + g.ID)
	defer unlock()

	final, err := m.store.TransitionGame(g.ID, store.GameAbandoned, nil, "abandoned")
	if err != nil {
		return err
	}
	m.afterTerminal(final)

	leaverName := leaverID
	if u, err := m.store.GetUser(leaverID); err == nil {
		leaverName = u.Name
	}
	payload := gin.H{
		"type":           "game_abandoned",
		"roomId":         final.RoomCode,
		"gameId":         final.ID,
		"message":        leaverName + " left the game",
		"redirectToHome": true,
	}
	for _, userID := range m.members.UniqueUsers(final.RoomCode) {
		sent := false
		for _, c := range m.reg.ForUser(userID) {
			if sent || !c.Alive() {
				continue
			}
			if err := c.Send(payload); err == nil {
				sent = true
			}
		}
	}
	m.members.Clear(final.RoomCode)
	return nil
}

// ExpireGame moves a stale game to Expired. With notifyRoom the notice
// fans out to whoever is still connected; the reconnection path notifies
// the returning client itself.
func (m *Manager) ExpireGame(g *store.Game, notifyRoom bool) (*store.Game, error) {
	unlock := m.lock("game:" + g.ID)
	defer unlock()

	final, err := m.store.TransitionGame(g.ID, store.GameExpired, nil, "expired")
	if err != nil {
		return nil, err
	}
	m.afterTerminal(final)

	if notifyRoom {
		m.members.Broadcast(final.RoomCode, gin.H{
			"type":    "game_expired",
			"gameId":  final.ID,
			"roomId":  final.RoomCode,
			"message": "Game expired due to inactivity",
		}, "")
	}
	return final, nil
}

// SweepExpired is the periodic scan backing the expiration ceiling: stale
// games are expired even if nobody ever reconnects to trigger it.
func (m *Manager) SweepExpired() {
	cutoff := time.Now().Add(-m.cfg.ExpireAfter)
	games, err := m.store.ActiveGamesOlderThan(cutoff)
	if err != nil {
		log.Printf("expiration sweep: %v", err)
		return
	}
	for i := range games {
		g := games[i]
		if _, err := m.ExpireGame(&g, true); err != nil {
			if !errors.Is(err, store.ErrStatusConflict) {
				log.Printf("expire game %s: %v", g.ID, err)
			}
			continue
		}
		log.Printf("expired game %s in room %s (last move %s)", g.ID, g.RoomCode, g.LastMoveAt.Format(time.RFC3339))
		for _, id := range []string{g.PlayerXID, g.PlayerOID} {
			if id = humanID(id); id != "" && m.recovery != nil {
				m.recovery.Reconcile(id)
			}
		}
	}
}

// ---- bot replies ----

// scheduleBotMove queues the scripted opponent's answer after a
// randomized delay. The timer is keyed by game id so a terminal
// transition can cancel it before it fires.
func (m *Manager) scheduleBotMove(g *store.Game) {
	delay := m.cfg.BotDelayMin
	if spread := m.cfg.BotDelayMax - m.cfg.BotDelayMin; spread > 0 {
		delay += time.Duration(m.randIntn(int(spread)))
	}
	gameID := g.ID
	m.mu.Lock()
	if t, ok := m.botTimers[gameID]; ok {
		t.Stop()
	}
	m.botTimers[gameID] = time.AfterFunc(delay, func() {
		m.mu.Lock()
		delete(m.botTimers, gameID)
		m.mu.Unlock()
		m.botReply(gameID)
	})
	m.mu.Unlock()
}

func (m *Manager) cancelBotTimer(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.botTimers[gameID]; ok {
		t.Stop()
		delete(m.botTimers, gameID)
	}
}

func (m *Manager) botReply(gameID string) {
	g, err := m.store.GetGame(gameID)
	if err != nil || g.Status != store.GameActive {
		return
	}
	botID := m.seatOf(g, g.CurrentTurn)
	if !isBotID(botID) {
		return
	}
	board := game.DecodeBoard(g.Board)
	if board.Full() {
		return
	}
	m.rngMu.Lock()
	pos := game.ChooseMove(board, g.CurrentTurn, g.BotDifficulty, m.rng)
	m.rngMu.Unlock()
	if _, err := m.SubmitMove(gameID, botID, pos); err != nil {
		log.Printf("bot move in game %s: %v", gameID, err)
	}
}

// ---- payload construction ----

// playersOf builds the tagged player pair for a game record; broadcast
// code never branches on human vs. scripted beyond this point.
func (m *Manager) playersOf(g *store.Game) (shared.Player, shared.Player) {
	mk := func(id, name string) shared.Player {
		if isBotID(id) {
			return shared.Scripted{ID: id, Persona: name, ProfileImage: g.BotImage, Difficulty: g.BotDifficulty}
		}
		return shared.Human{ID: id, Name: name}
	}
	return mk(g.PlayerXID, g.PlayerXName), mk(g.PlayerOID, g.PlayerOName)
}

func (m *Manager) playerInfos(g *store.Game) (shared.PlayerInfo, shared.PlayerInfo) {
	x, o := m.playersOf(g)
	return x.Info(), o.Info()
}

// gameView is the wire shape of a game record, board decoded.
func (m *Manager) gameView(g *store.Game) gin.H {
	xInfo, oInfo := m.playerInfos(g)
	return gin.H{
		"id":            g.ID,
		"roomId":        g.RoomCode,
		"board":         game.DecodeBoard(g.Board),
		"currentPlayer": g.CurrentTurn,
		"status":        g.Status,
		"winner":        g.Winner,
		"playerXInfo":   xInfo,
		"playerOInfo":   oInfo,
		"createdAt":     g.CreatedAt,
		"lastMoveAt":    g.LastMoveAt,
	}
}
