package http

// CreateRoomRequest is the payload for POST /rooms.
type CreateRoomRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// JoinRoomRequest is the payload for POST /rooms/:code/join.
type JoinRoomRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// StartGameRequest is the payload for POST /rooms/:code/start.
type StartGameRequest struct {
	UserID string `json:"userId"`
}

// LeaveRoomRequest is the payload for POST /rooms/:code/leave.
type LeaveRoomRequest struct {
	UserID string `json:"userId"`
}

// MoveRequest is the payload for POST /games/:id/move.
type MoveRequest struct {
	UserID   string `json:"userId"`
	Position *int   `json:"position"`
}

// MatchRequest is the payload for POST /match and DELETE /match.
type MatchRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}
