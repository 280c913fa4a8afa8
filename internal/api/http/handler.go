package http

import (
	"errors"
	"net/http"

	"tictactoe-arena/internal/room"
	"tictactoe-arena/internal/store"

	"github.com/gin-gonic/gin"
)

// statusFor maps the core's error taxonomy onto HTTP status classes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, room.ErrWrongTurn), errors.Is(err, room.ErrInvalidMove):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func CreateRoomHandler(mgr *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoomRequest
		if err := c.BindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		r, err := mgr.CreateRoom(req.UserID, req.Name)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomCode": r.Code, "room": r})
	}
}

func GetRoomHandler(mgr *room.Manager, st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := mgr.GetRoom(c.Param("code"))
		if err != nil {
			fail(c, err)
			return
		}
		resp := gin.H{"room": r}
		if g, err := st.ActiveGameForRoom(r.Code); err == nil {
			resp["game"] = g
		}
		c.JSON(http.StatusOK, resp)
	}
}

func JoinRoomHandler(mgr *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req JoinRoomRequest
		if err := c.BindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		r, err := mgr.JoinRoom(c.Param("code"), req.UserID, req.Name, nil)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": r})
	}
}

func LeaveRoomHandler(mgr *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LeaveRoomRequest
		if err := c.BindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		if err := mgr.LeaveRoom(c.Param("code"), req.UserID); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func StartGameHandler(mgr *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StartGameRequest
		if err := c.BindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		g, created, err := mgr.StartGame(c.Param("code"), req.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"game": g, "created": created})
	}
}

func MoveHandler(mgr *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MoveRequest
		if err := c.BindJSON(&req); err != nil || req.UserID == "" || req.Position == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId and position required"})
			return
		}
		g, err := mgr.SubmitMove(c.Param("id"), req.UserID, *req.Position)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"game": g})
	}
}

func FindMatchHandler(mm *room.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MatchRequest
		if err := c.BindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		mm.Enqueue(req.UserID, req.Name)
		c.JSON(http.StatusOK, gin.H{"queued": true})
	}
}

func CancelMatchHandler(mm *room.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MatchRequest
		if err := c.BindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		mm.Cancel(req.UserID)
		c.JSON(http.StatusOK, gin.H{"queued": false})
	}
}
