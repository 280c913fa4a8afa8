package room

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tictactoe-arena/internal/game"
	"tictactoe-arena/internal/store"
)

func TestStartGameDeterministicAssignment(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, _ := e.seatTwo(t, "alice", "Alice", "bob", "Bob")

	g, created, err := e.mgr.StartGame(r.Code, "alice")
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh game")
	}
	if g.PlayerXID != "alice" || g.PlayerOID != "bob" {
		t.Fatalf("seats X=%s O=%s, want the smaller id as X", g.PlayerXID, g.PlayerOID)
	}
	if g.CurrentTurn != "X" {
		t.Fatalf("first turn = %s, want X", g.CurrentTurn)
	}
}

func TestStartGameIdempotent(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, _ := e.seatTwo(t, "alice", "Alice", "bob", "Bob")

	var wg sync.WaitGroup
	ids := make([]string, 2)
	for i, userID := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			g, _, err := e.mgr.StartGame(r.Code, userID)
			if err != nil {
				t.Errorf("start from %s: %v", userID, err)
				return
			}
			ids[i] = g.ID
		}(i, userID)
	}
	wg.Wait()

	if ids[0] == "" || ids[0] != ids[1] {
		t.Fatalf("both starters must observe the same game, got %q and %q", ids[0], ids[1])
	}
	// The second start did not reset the board either.
	g, _, err := e.mgr.StartGame(r.Code, "alice")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if _, err := e.mgr.SubmitMove(g.ID, "alice", 4); err != nil {
		t.Fatalf("move: %v", err)
	}
	g2, _, _ := e.mgr.StartGame(r.Code, "bob")
	if g2.ID != g.ID {
		t.Fatal("start after a move created a second game")
	}
	if b := game.DecodeBoard(g2.Board); !b.Occupied(4) {
		t.Fatal("idempotent start mutated the board")
	}
}

func TestStartGameRequiresTwoSeats(t *testing.T) {
	e := newEnv(t)
	ca, _ := e.connect("alice", "Alice")
	r, err := e.mgr.CreateRoom("alice", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.mgr.JoinRoom(r.Code, "alice", "Alice", ca); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.mgr.StartGame(r.Code, "alice"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestSubmitMoveValidationLadder(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, _ := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g, _, err := e.mgr.StartGame(r.Code, "alice")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.mgr.SubmitMove("no-such-game", "alice", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown game err = %v, want ErrNotFound", err)
	}
	if _, err := e.mgr.SubmitMove(g.ID, "mallory", 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("outsider err = %v, want ErrForbidden", err)
	}
	if _, err := e.mgr.SubmitMove(g.ID, "bob", 0); !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("out-of-turn err = %v, want ErrWrongTurn", err)
	}
	if _, err := e.mgr.SubmitMove(g.ID, "alice", 9); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("out-of-range err = %v, want ErrInvalidMove", err)
	}
	if _, err := e.mgr.SubmitMove(g.ID, "alice", 4); err != nil {
		t.Fatalf("legal move rejected: %v", err)
	}
	if _, err := e.mgr.SubmitMove(g.ID, "bob", 4); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("occupied err = %v, want ErrInvalidMove", err)
	}

	// Rejections never touch the record.
	gg, _ := e.st.GetGame(g.ID)
	if len(game.DecodeBoard(gg.Board)) != 1 {
		t.Fatal("rejected submissions mutated the board")
	}
}

func TestMarkersStrictlyAlternate(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, sb := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g, _, _ := e.mgr.StartGame(r.Code, "alice")

	moves := []struct {
		userID string
		pos    int
	}{
		{"alice", 4}, {"bob", 0}, {"alice", 8}, {"bob", 2},
	}
	for _, mv := range moves {
		if _, err := e.mgr.SubmitMove(g.ID, mv.userID, mv.pos); err != nil {
			t.Fatalf("%s at %d: %v", mv.userID, mv.pos, err)
		}
	}

	frames := sb.typed("move")
	if len(frames) != len(moves) {
		t.Fatalf("bob saw %d move frames, want %d", len(frames), len(moves))
	}
	want := []string{"X", "O", "X", "O"}
	for i, fr := range frames {
		if fr["player"] != want[i] {
			t.Fatalf("move %d played by %v, want %s", i, fr["player"], want[i])
		}
		next := "O"
		if want[i] == "O" {
			next = "X"
		}
		if fr["currentPlayer"] != next {
			t.Fatalf("move %d leaves turn %v, want %s", i, fr["currentPlayer"], next)
		}
	}
}

func TestMoveLogReproducesBoard(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, _ := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g, _, _ := e.mgr.StartGame(r.Code, "alice")

	seq := []struct {
		userID string
		pos    int
	}{
		{"alice", 0}, {"bob", 4}, {"alice", 1}, {"bob", 5}, {"alice", 2},
	}
	for _, mv := range seq {
		if _, err := e.mgr.SubmitMove(g.ID, mv.userID, mv.pos); err != nil {
			t.Fatalf("%s at %d: %v", mv.userID, mv.pos, err)
		}
	}

	final, _ := e.st.GetGame(g.ID)
	if final.Status != store.GameFinished {
		t.Fatalf("status = %s, want finished", final.Status)
	}

	moves, err := e.st.MovesForGame(g.ID)
	if err != nil {
		t.Fatal(err)
	}
	replay := game.NewBoard()
	for i, mv := range moves {
		if mv.Seq != i+1 {
			t.Fatalf("move %d has seq %d, want %d", i, mv.Seq, i+1)
		}
		replay[mv.Position] = mv.Marker
	}
	persisted := game.DecodeBoard(final.Board)
	if len(replay) != len(persisted) {
		t.Fatalf("replay has %d cells, persisted %d", len(replay), len(persisted))
	}
	for pos, m := range persisted {
		if replay[pos] != m {
			t.Fatalf("replay[%d] = %q, persisted %q", pos, replay[pos], m)
		}
	}
}

func TestWinTwoStageBroadcast(t *testing.T) {
	e := newEnv(t)
	r, _, sa, _, sb := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g, _, _ := e.mgr.StartGame(r.Code, "alice")

	for _, mv := range []struct {
		userID string
		pos    int
	}{
		{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4}, {"alice", 2},
	} {
		if _, err := e.mgr.SubmitMove(g.ID, mv.userID, mv.pos); err != nil {
			t.Fatalf("%s at %d: %v", mv.userID, mv.pos, err)
		}
	}

	// Highlight lands immediately, the summary only after the gap.
	if len(sb.typed("winning_move")) != 1 {
		t.Fatal("bob did not get the winning_move highlight")
	}
	if len(sb.typed("game_over")) != 0 {
		t.Fatal("game_over arrived before the reveal delay")
	}
	fr, ok := sb.waitFor("game_over", 20*e.cfg.WinRevealDelay)
	if !ok {
		t.Fatal("game_over never arrived")
	}
	if fr["winner"] != "alice" || fr["condition"] != "win" {
		t.Fatalf("game_over = %+v, want alice winning", fr)
	}
	if _, ok := sa.waitFor("game_over", 20*e.cfg.WinRevealDelay); !ok {
		t.Fatal("winner did not get game_over")
	}

	final, _ := e.st.GetGame(g.ID)
	if final.Status != store.GameFinished || final.Winner == nil || *final.Winner != "alice" {
		t.Fatalf("persisted game = %+v, want finished with alice winning", final)
	}
	rm, _ := e.st.GetRoom(r.Code)
	if rm.Status != store.RoomWaiting {
		t.Fatalf("room status = %s, want waiting", rm.Status)
	}

	ua, _ := e.st.GetUser("alice")
	ub, _ := e.st.GetUser("bob")
	if ua.Wins != 1 || ub.Losses != 1 {
		t.Fatalf("records alice=%+v bob=%+v, want 1 win / 1 loss", ua, ub)
	}
}

func TestDrawSingleStageBroadcast(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, sb := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g, _, _ := e.mgr.StartGame(r.Code, "alice")

	// X O X / X O O / O X X
	for _, mv := range []struct {
		userID string
		pos    int
	}{
		{"alice", 0}, {"bob", 1}, {"alice", 2}, {"bob", 4},
		{"alice", 3}, {"bob", 5}, {"alice", 7}, {"bob", 6}, {"alice", 8},
	} {
		if _, err := e.mgr.SubmitMove(g.ID, mv.userID, mv.pos); err != nil {
			t.Fatalf("%s at %d: %v", mv.userID, mv.pos, err)
		}
	}

	frames := sb.typed("game_over")
	if len(frames) != 1 {
		t.Fatalf("bob saw %d game_over frames, want an immediate single one", len(frames))
	}
	if frames[0]["condition"] != "draw" || frames[0]["winner"] != nil {
		t.Fatalf("game_over = %+v, want a draw", frames[0])
	}
	if len(sb.typed("winning_move")) != 0 {
		t.Fatal("a draw must not produce a highlight stage")
	}

	ua, _ := e.st.GetUser("alice")
	ub, _ := e.st.GetUser("bob")
	if ua.Draws != 1 || ub.Draws != 1 {
		t.Fatalf("records alice=%+v bob=%+v, want a draw each", ua, ub)
	}
}

func TestExplicitLeaveAbandonsGame(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, sb := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	// Bob also has a second tab in the room.
	cb2, sb2 := e.connect("bob", "Bob")
	if _, err := e.mgr.JoinRoom(r.Code, "bob", "Bob", cb2); err != nil {
		t.Fatal(err)
	}
	g, _, _ := e.mgr.StartGame(r.Code, "alice")

	if err := e.mgr.LeaveRoom(r.Code, "alice"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	final, _ := e.st.GetGame(g.ID)
	if final.Status != store.GameAbandoned {
		t.Fatalf("status = %s, want abandoned", final.Status)
	}
	rm, _ := e.st.GetRoom(r.Code)
	if rm.Status != store.RoomWaiting {
		t.Fatalf("room status = %s, want waiting", rm.Status)
	}

	// One notice per unique user, though bob holds two connections.
	total := len(sb.typed("game_abandoned")) + len(sb2.typed("game_abandoned"))
	if total != 1 {
		t.Fatalf("bob received %d abandonment notices, want exactly 1", total)
	}
	if fr := append(sb.typed("game_abandoned"), sb2.typed("game_abandoned")...)[0]; fr["redirectToHome"] != true {
		t.Fatalf("notice = %+v, want redirectToHome", fr)
	}
	if len(e.members.Members(r.Code)) != 0 {
		t.Fatal("membership entry should be cleared after abandonment")
	}
}

func TestBareDisconnectDoesNotAbandon(t *testing.T) {
	e := newEnv(t)
	r, _, _, cb, _ := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g, _, _ := e.mgr.StartGame(r.Code, "alice")

	e.disconnect(cb)
	time.Sleep(20 * time.Millisecond)

	gg, _ := e.st.GetGame(g.ID)
	if gg.Status != store.GameActive {
		t.Fatalf("status = %s after a bare disconnect, want active", gg.Status)
	}
	if !e.presence.IsOnline("bob") {
		t.Fatal("mid-game user must stay in presence through a blip")
	}
}

func TestSweepExpiresStaleGames(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, sb := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g, _, _ := e.mgr.StartGame(r.Code, "alice")

	gg, _ := e.st.GetGame(g.ID)
	gg.LastMoveAt = time.Now().Add(-e.cfg.ExpireAfter - time.Minute)
	if err := e.st.SaveGame(gg); err != nil {
		t.Fatal(err)
	}

	e.mgr.SweepExpired()

	final, _ := e.st.GetGame(g.ID)
	if final.Status != store.GameExpired {
		t.Fatalf("status = %s, want expired", final.Status)
	}
	rm, _ := e.st.GetRoom(r.Code)
	if rm.Status != store.RoomWaiting {
		t.Fatalf("room status = %s, want waiting", rm.Status)
	}
	if len(sb.typed("game_expired")) != 1 {
		t.Fatal("connected members must be notified by the sweep")
	}
	if _, err := e.mgr.SubmitMove(g.ID, "alice", 0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("move on expired game err = %v, want ErrInvalidState", err)
	}
}

func TestRejoinDoesNotRepeatJoinNotice(t *testing.T) {
	e := newEnv(t)
	r, _, sa, cb, _ := e.seatTwo(t, "alice", "Alice", "bob", "Bob")

	before := len(sa.typed("user_joined"))
	for i := 0; i < 3; i++ {
		if _, err := e.mgr.JoinRoom(r.Code, "bob", "Bob", cb); err != nil {
			t.Fatalf("rejoin %d: %v", i, err)
		}
	}
	if after := len(sa.typed("user_joined")); after != before {
		t.Fatalf("alice saw %d join notices after rejoins, want %d", after, before)
	}
}

func TestTerminalGameDropsLockEntry(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, _ := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g, _, _ := e.mgr.StartGame(r.Code, "alice")

	for _, mv := range []struct {
		userID string
		pos    int
	}{
		{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4}, {"alice", 2},
	} {
		if _, err := e.mgr.SubmitMove(g.ID, mv.userID, mv.pos); err != nil {
			t.Fatal(err)
		}
	}

	e.mgr.mu.Lock()
	_, ok := e.mgr.locks["game:"+g.ID]
	e.mgr.mu.Unlock()
	if ok {
		t.Fatal("finished game left its lock entry behind")
	}
	// Late submissions still fail cleanly through a fresh lock.
	if _, err := e.mgr.SubmitMove(g.ID, "bob", 5); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestPlayAgainSameAssignment(t *testing.T) {
	e := newEnv(t)
	r, _, _, _, _ := e.seatTwo(t, "alice", "Alice", "bob", "Bob")
	g1, _, _ := e.mgr.StartGame(r.Code, "alice")
	for _, mv := range []struct {
		userID string
		pos    int
	}{
		{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4}, {"alice", 2},
	} {
		if _, err := e.mgr.SubmitMove(g1.ID, mv.userID, mv.pos); err != nil {
			t.Fatal(err)
		}
	}

	g2, created, err := e.mgr.StartGame(r.Code, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !created || g2.ID == g1.ID {
		t.Fatal("play again should create a fresh game")
	}
	if g2.PlayerXID != g1.PlayerXID || g2.PlayerOID != g1.PlayerOID {
		t.Fatal("repeated games in a room must keep the same assignment")
	}
}
