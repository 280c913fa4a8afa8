package shared

// Marker is the turn indicator assigned to each seated player.
type Marker string

const (
	MarkerX Marker = "X"
	MarkerO Marker = "O"
)

func (m Marker) Other() Marker {
	if m == MarkerX {
		return MarkerO
	}
	return MarkerX
}

// PlayerInfo is the shape every broadcast payload carries for a seated
// player, human or scripted.
type PlayerInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
	IsBot        bool   `json:"isBot"`
	Difficulty   string `json:"difficulty,omitempty"`
}

// Player is either a Human or a Scripted opponent. Broadcast construction
// only ever goes through Info, so it never branches on origin.
type Player interface {
	PlayerID() string
	Info() PlayerInfo
}

type Human struct {
	ID           string
	Name         string
	ProfileImage string
}

func (h Human) PlayerID() string { return h.ID }

func (h Human) Info() PlayerInfo {
	return PlayerInfo{ID: h.ID, Name: h.Name, ProfileImage: h.ProfileImage}
}

type Scripted struct {
	ID           string
	Persona      string
	ProfileImage string
	Difficulty   string
}

func (s Scripted) PlayerID() string { return s.ID }

func (s Scripted) Info() PlayerInfo {
	return PlayerInfo{
		ID:           s.ID,
		Name:         s.Persona,
		ProfileImage: s.ProfileImage,
		IsBot:        true,
		Difficulty:   s.Difficulty,
	}
}
