package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a status transition loses the
	// race against another transition on the same row.
	ErrStatusConflict = errors.New("status transition conflict")
)

// Store is the persistence surface the coordination core consumes. It is
// treated as a reliable, linearizable record store; process-local state
// (presence, queue, membership) never goes through it.
type Store interface {
	CreateRoom(r *Room) error
	GetRoom(code string) (*Room, error)
	SaveRoom(r *Room) error
	SetRoomStatus(code string, status RoomStatus) error

	CreateGame(g *Game) error
	GetGame(id string) (*Game, error)
	// ActiveGameForRoom returns ErrNotFound when the room has no active game.
	ActiveGameForRoom(roomCode string) (*Game, error)
	ActiveGameForUser(userID string) (*Game, error)
	// ActiveGamesOlderThan lists active games whose last move precedes cutoff.
	ActiveGamesOlderThan(cutoff time.Time) ([]Game, error)
	// SaveGame persists board/turn/last-move updates on an active game.
	SaveGame(g *Game) error
	// TransitionGame atomically moves an active game to a terminal status.
	// It fails with ErrStatusConflict if the game is no longer active, so
	// a game reaches a terminal status exactly once.
	TransitionGame(id string, to GameStatus, winner *string, reason string) (*Game, error)

	AppendMove(m *Move) error
	MovesForGame(gameID string) ([]Move, error)

	UpsertUser(id, name string) error
	GetUser(id string) (*User, error)
	// RecordResult bumps the aggregate counters for a finished game.
	// loserID may be empty (bot opponents have no user row).
	RecordResult(winnerID, loserID string, draw bool) error
}
