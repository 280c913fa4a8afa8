package room

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"tictactoe-arena/internal/config"
	"tictactoe-arena/internal/live"
	"tictactoe-arena/internal/store"
)

type frame = map[string]interface{}

// fakeSender captures outbound frames as decoded JSON so tests can
// assert on the wire shape.
type fakeSender struct {
	mu     sync.Mutex
	frames []frame
	dead   bool
}

func (f *fakeSender) Send(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fr frame
	if err := json.Unmarshal(raw, &fr); err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, fr)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead
}

func (f *fakeSender) kill() {
	f.mu.Lock()
	f.dead = true
	f.mu.Unlock()
}

func (f *fakeSender) typed(frameType string) []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []frame
	for _, fr := range f.frames {
		if fr["type"] == frameType {
			out = append(out, fr)
		}
	}
	return out
}

// waitFor polls until a frame of the given type shows up.
func (f *fakeSender) waitFor(frameType string, timeout time.Duration) (frame, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if frames := f.typed(frameType); len(frames) > 0 {
			return frames[0], true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return nil, false
}

func testConfig() config.Config {
	return config.Config{
		MatchTimeout:           60 * time.Millisecond,
		BotDelayMin:            5 * time.Millisecond,
		BotDelayMax:            10 * time.Millisecond,
		WinRevealDelay:         25 * time.Millisecond,
		ReconnectSnapshotDelay: 10 * time.Millisecond,
		ReconnectDebounce:      150 * time.Millisecond,
		ExpireAfter:            10 * time.Minute,
		SweepInterval:          time.Hour,
	}
}

type env struct {
	st       *store.MemoryStore
	cfg      config.Config
	reg      *live.Registry
	presence *live.Presence
	members  *live.Membership
	states   *live.RoomStates
	mgr      *Manager
	rec      *Recovery
	mm       *Matchmaker

	nextConn int
}

func newEnv(t *testing.T, mutate ...func(*config.Config)) *env {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	st := store.NewMemoryStore()
	reg := live.NewRegistry()
	presence := live.NewPresence()
	members := live.NewMembership()
	states := live.NewRoomStates()
	mgr := NewManager(st, cfg, reg, presence, members, states)
	rec := NewRecovery(mgr)
	mm := NewMatchmaker(mgr)
	return &env{
		st: st, cfg: cfg, reg: reg, presence: presence,
		members: members, states: states, mgr: mgr, rec: rec, mm: mm,
	}
}

// connect opens a fake transport connection and runs it through the same
// auth-time path the websocket hub uses.
func (e *env) connect(userID, name string) (*live.Conn, *fakeSender) {
	e.nextConn++
	s := &fakeSender{}
	c := e.reg.Register(fmt.Sprintf("conn-%d", e.nextConn), userID, name, s)
	e.rec.HandleConnect(c)
	return c, s
}

func (e *env) disconnect(c *live.Conn) {
	e.rec.HandleDisconnect(c.ID)
}

// seatTwo creates a room with both users seated and their connections in
// the membership index.
func (e *env) seatTwo(t *testing.T, aID, aName, bID, bName string) (*store.Room, *live.Conn, *fakeSender, *live.Conn, *fakeSender) {
	t.Helper()
	ca, sa := e.connect(aID, aName)
	cb, sb := e.connect(bID, bName)
	r, err := e.mgr.CreateRoom(aID, aName)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := e.mgr.JoinRoom(r.Code, aID, aName, ca); err != nil {
		t.Fatalf("join %s: %v", aID, err)
	}
	if _, err := e.mgr.JoinRoom(r.Code, bID, bName, cb); err != nil {
		t.Fatalf("join %s: %v", bID, err)
	}
	return r, ca, sa, cb, sb
}
