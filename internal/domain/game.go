package domain

// Game identifies which Path of Exile game an entity belongs to.
// Every persisted row carries a Game tag; data is never mixed across games.
type Game string

const (
	GamePoE1 Game = "poe1"
	GamePoE2 Game = "poe2"
)

// Games lists all supported games in stable order.
var Games = []Game{GamePoE1, GamePoE2}

// String returns the string representation of Game.
func (g Game) String() string {
	return string(g)
}

// IsValid checks if the game is a supported value.
func (g Game) IsValid() bool {
	return g == GamePoE1 || g == GamePoE2
}

// DisplayName returns a human-readable game name.
func (g Game) DisplayName() string {
	switch g {
	case GamePoE1:
		return "Path of Exile"
	case GamePoE2:
		return "Path of Exile 2"
	default:
		return string(g)
	}
}
