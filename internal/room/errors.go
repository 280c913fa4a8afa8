package room

import "errors"

// Validation and state errors surfaced to the request boundary. The HTTP
// and WS layers map these onto status classes; nothing here crashes the
// process.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("not a seated player")
	ErrWrongTurn    = errors.New("not your turn")
	ErrInvalidMove  = errors.New("position invalid or occupied")
	ErrInvalidState = errors.New("action not allowed in current state")
)
