package game

import (
	"math/rand"

	"tictactoe-arena/internal/shared"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Persona is the public face a scripted opponent presents in broadcasts.
type Persona struct {
	Name         string
	ProfileImage string
}

var personas = map[string][]Persona{
	DifficultyEasy: {
		{Name: "Rookie Rex", ProfileImage: "/avatars/rex.png"},
		{Name: "Casual Cleo", ProfileImage: "/avatars/cleo.png"},
		{Name: "Newbie Ned", ProfileImage: "/avatars/ned.png"},
	},
	DifficultyMedium: {
		{Name: "Solid Sam", ProfileImage: "/avatars/sam.png"},
		{Name: "Tactical Tess", ProfileImage: "/avatars/tess.png"},
	},
	DifficultyHard: {
		{Name: "Grandmaster Gus", ProfileImage: "/avatars/gus.png"},
		{Name: "Perfect Petra", ProfileImage: "/avatars/petra.png"},
	},
}

// PickPersona selects a random persona from the given tier's pool.
func PickPersona(difficulty string, rng *rand.Rand) Persona {
	pool, ok := personas[difficulty]
	if !ok || len(pool) == 0 {
		pool = personas[DifficultyMedium]
	}
	return pool[rng.Intn(len(pool))]
}

// ChooseMove picks a legal position for the marker m. The caller guarantees
// the board is not full.
func ChooseMove(b Board, m shared.Marker, difficulty string, rng *rand.Rand) int {
	cands := b.LegalPositions()
	switch difficulty {
	case DifficultyEasy:
		return cands[rng.Intn(len(cands))]
	case DifficultyHard:
		return minimaxMove(b, m)
	default:
		return heuristicMove(b, m, cands, rng)
	}
}

// heuristicMove wins if it can, blocks if it must, then prefers the
// center, then corners.
func heuristicMove(b Board, m shared.Marker, cands []int, rng *rand.Rand) int {
	for _, pos := range cands {
		if WouldWin(b, pos, m) {
			return pos
		}
	}
	for _, pos := range cands {
		if WouldWin(b, pos, m.Other()) {
			return pos
		}
	}
	if !b.Occupied(4) {
		return 4
	}
	corners := []int{0, 2, 6, 8}
	rng.Shuffle(len(corners), func(i, j int) { corners[i], corners[j] = corners[j], corners[i] })
	for _, pos := range corners {
		if !b.Occupied(pos) {
			return pos
		}
	}
	return cands[rng.Intn(len(cands))]
}

func minimaxMove(b Board, m shared.Marker) int {
	best, bestScore := -1, -1000
	for _, pos := range b.LegalPositions() {
		c := b.Clone()
		c[pos] = m
		score := -negamax(c, m.Other(), m, 1)
		if score > bestScore {
			best, bestScore = pos, score
		}
	}
	return best
}

// negamax scores the position for the side to move. Depth biases the
// score so earlier wins beat later ones.
func negamax(b Board, toMove, justMoved shared.Marker, depth int) int {
	if res, _ := Evaluate(b, justMoved); res == ResultWin {
		return -(100 - depth)
	} else if res == ResultDraw {
		return 0
	}
	best := -1000
	for _, pos := range b.LegalPositions() {
		c := b.Clone()
		c[pos] = toMove
		if score := -negamax(c, toMove.Other(), toMove, depth+1); score > best {
			best = score
		}
	}
	return best
}
