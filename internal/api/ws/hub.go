package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"tictactoe-arena/internal/live"
	"tictactoe-arena/internal/room"
	"tictactoe-arena/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// inbound is the envelope for every client → server frame.
type inbound struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	RoomID   string `json:"roomId"`
	GameID   string `json:"gameId"`
	Position *int   `json:"position"`
}

// Hub upgrades connections, runs the auth handshake and dispatches
// inbound frames to the coordination layer.
type Hub struct {
	reg      *live.Registry
	presence *live.Presence
	store    store.Store
	mgr      *room.Manager
	mm       *room.Matchmaker
	rec      *room.Recovery
}

func NewHub(reg *live.Registry, presence *live.Presence, st store.Store, mgr *room.Manager, mm *room.Matchmaker, rec *room.Recovery) *Hub {
	return &Hub{reg: reg, presence: presence, store: st, mgr: mgr, mm: mm, rec: rec}
}

func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	client := newClient(conn)

	// First frame must be the auth handshake.
	var first inbound
	if err := conn.ReadJSON(&first); err != nil || first.Type != "auth" || first.UserID == "" {
		_ = client.Send(gin.H{"type": "error", "error": "auth required"})
		client.close()
		return
	}
	userID, name := first.UserID, first.Name
	if name == "" {
		name = userID
	}
	if err := h.store.UpsertUser(userID, name); err != nil {
		log.Printf("upsert user %s: %v", userID, err)
	}

	connID := uuid.NewString()
	lc := h.reg.Register(connID, userID, name, client)
	log.Printf("connection %s opened for user %s (%s)", connID, userID, name)
	h.rec.HandleConnect(lc)

	defer func() {
		client.close()
		h.rec.HandleDisconnect(connID)
		log.Printf("connection %s closed for user %s", connID, userID)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Malformed frames are logged, never fatal to the connection.
			log.Printf("bad frame from %s: %v", connID, err)
			continue
		}
		h.reg.Touch(connID)
		h.presence.Touch(userID)
		h.dispatch(lc, userID, name, msg)
	}
}

func (h *Hub) dispatch(lc *live.Conn, userID, name string, msg inbound) {
	switch msg.Type {
	case "join_room":
		if msg.RoomID == "" {
			h.sendError(lc, "roomId required")
			return
		}
		r, err := h.mgr.JoinRoom(msg.RoomID, userID, name, lc)
		if err != nil {
			h.sendError(lc, err.Error())
			return
		}
		_ = lc.Send(gin.H{"type": "room_joined", "room": r})
	case "leave_room":
		if err := h.mgr.LeaveRoom(msg.RoomID, userID); err != nil {
			h.sendError(lc, err.Error())
		}
	case "find_match":
		h.mm.Enqueue(userID, name)
	case "cancel_match":
		h.mm.Cancel(userID)
	case "submit_move":
		if msg.GameID == "" || msg.Position == nil {
			h.sendError(lc, "gameId and position required")
			return
		}
		if _, err := h.mgr.SubmitMove(msg.GameID, userID, *msg.Position); err != nil {
			h.sendError(lc, err.Error())
		}
	default:
		log.Printf("unknown frame type %q from user %s", msg.Type, userID)
	}
}

func (h *Hub) sendError(lc *live.Conn, detail string) {
	if err := lc.Send(gin.H{"type": "error", "error": detail}); err != nil {
		log.Printf("send error frame: %v", err)
	}
}
