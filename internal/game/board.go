package game

import (
	"encoding/json"

	"tictactoe-arena/internal/shared"
)

// Cells is the number of positions on the board, indexed 0..8 row-major.
const Cells = 9

// Board is the sparse position → marker mapping. Entries are only ever
// added while a game is running, never removed or overwritten.
type Board map[int]shared.Marker

func NewBoard() Board {
	return make(Board)
}

func (b Board) Occupied(pos int) bool {
	_, ok := b[pos]
	return ok
}

func (b Board) Full() bool {
	return len(b) >= Cells
}

// LegalPositions returns every empty position in ascending order.
func (b Board) LegalPositions() []int {
	out := make([]int, 0, Cells-len(b))
	for pos := 0; pos < Cells; pos++ {
		if !b.Occupied(pos) {
			out = append(out, pos)
		}
	}
	return out
}

func (b Board) Clone() Board {
	c := make(Board, len(b))
	for pos, m := range b {
		c[pos] = m
	}
	return c
}

// Encode serializes the board for the persisted game record.
func (b Board) Encode() string {
	raw, err := json.Marshal(b)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func DecodeBoard(s string) Board {
	b := NewBoard()
	if s == "" {
		return b
	}
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return NewBoard()
	}
	return b
}
