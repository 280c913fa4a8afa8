package http

import (
	"tictactoe-arena/internal/api/ws"
	"tictactoe-arena/internal/room"
	"tictactoe-arena/internal/store"

	"github.com/gin-gonic/gin"
)

func NewRouter(mgr *room.Manager, mm *room.Matchmaker, st store.Store, hub *ws.Hub) *gin.Engine {
	r := gin.Default()

	// WebSocket for live play
	r.GET("/ws", hub.HandleWS)

	// --- ROOM ENDPOINTS ---
	r.POST("/rooms", CreateRoomHandler(mgr))
	r.GET("/rooms/:code", GetRoomHandler(mgr, st))
	r.POST("/rooms/:code/join", JoinRoomHandler(mgr))
	r.POST("/rooms/:code/leave", LeaveRoomHandler(mgr))
	r.POST("/rooms/:code/start", StartGameHandler(mgr))

	// --- GAME ENDPOINTS ---
	r.POST("/games/:id/move", MoveHandler(mgr))

	// --- MATCHMAKING ENDPOINTS ---
	r.POST("/match", FindMatchHandler(mm))
	r.DELETE("/match", CancelMatchHandler(mm))

	return r
}
