package game

import "tictactoe-arena/internal/shared"

type Result int

const (
	ResultNone Result = iota
	ResultWin
	ResultDraw
)

// lines is the fixed set of winning shapes: three rows, three columns,
// two diagonals.
var lines = [][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Evaluate decides the outcome for the player holding m after their move.
// On a win it also returns the completed line's positions.
func Evaluate(b Board, m shared.Marker) (Result, []int) {
	for _, ln := range lines {
		if b[ln[0]] == m && b[ln[1]] == m && b[ln[2]] == m {
			return ResultWin, []int{ln[0], ln[1], ln[2]}
		}
	}
	if b.Full() {
		return ResultDraw, nil
	}
	return ResultNone, nil
}

// WouldWin reports whether placing m at pos completes a line.
func WouldWin(b Board, pos int, m shared.Marker) bool {
	if b.Occupied(pos) {
		return false
	}
	c := b.Clone()
	c[pos] = m
	res, _ := Evaluate(c, m)
	return res == ResultWin
}
