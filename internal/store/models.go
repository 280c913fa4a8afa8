package store

import (
	"time"

	"tictactoe-arena/internal/shared"
)

type GameStatus string

const (
	GameActive    GameStatus = "active"
	GameFinished  GameStatus = "finished"
	GameAbandoned GameStatus = "abandoned"
	GameExpired   GameStatus = "expired"
)

type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomPlaying RoomStatus = "playing"
)

// Room is the persisted lobby record. Live membership is tracked
// separately in memory; this row only carries ownership and status.
type Room struct {
	Code      string     `gorm:"primaryKey" json:"code"`
	OwnerID   string     `gorm:"index" json:"ownerId"`
	GuestID   string     `gorm:"index" json:"guestId,omitempty"`
	GuestName string     `json:"guestName,omitempty"`
	Status    RoomStatus `gorm:"index;default:'waiting'" json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Game is the authoritative record for one played game. Board is the
// JSON-encoded sparse position → marker map.
type Game struct {
	ID            string        `gorm:"primaryKey" json:"id"`
	RoomCode      string        `gorm:"index" json:"roomId"`
	PlayerXID     string        `gorm:"index" json:"playerXId"`
	PlayerXName   string        `json:"playerXName"`
	PlayerOID     string        `gorm:"index" json:"playerOId"`
	PlayerOName   string        `json:"playerOName"`
	OpponentBot   bool          `json:"opponentBot"`
	BotDifficulty string        `json:"botDifficulty,omitempty"`
	BotImage      string        `json:"botImage,omitempty"`
	CurrentTurn   shared.Marker `json:"currentPlayer"`
	Board         string        `json:"board"`
	Status        GameStatus    `gorm:"index" json:"status"`
	Winner        *string       `json:"winner,omitempty"`
	WinReason     string        `json:"winReason,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastMoveAt    time.Time     `gorm:"index" json:"lastMoveAt"`
}

// PlayerIDs returns the two seat holders, X first.
func (g *Game) PlayerIDs() (string, string) {
	return g.PlayerXID, g.PlayerOID
}

func (g *Game) Seated(userID string) bool {
	return userID == g.PlayerXID || userID == g.PlayerOID
}

// MarkerOf returns the marker assigned to userID, or "" for non-players.
func (g *Game) MarkerOf(userID string) shared.Marker {
	switch userID {
	case g.PlayerXID:
		return shared.MarkerX
	case g.PlayerOID:
		return shared.MarkerO
	}
	return ""
}

// Move is one entry of a game's append-only move log.
type Move struct {
	ID       uint          `gorm:"primaryKey;autoIncrement" json:"-"`
	GameID   string        `gorm:"index" json:"gameId"`
	PlayerID string        `json:"playerId"`
	Position int           `json:"position"`
	Marker   shared.Marker `json:"marker"`
	Seq      int           `json:"seq"`
	PlayedAt time.Time     `json:"playedAt"`
}

// User carries the aggregate record updated when games finish.
type User struct {
	ID     string `gorm:"primaryKey" json:"id"`
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Draws  int    `json:"draws"`
}
