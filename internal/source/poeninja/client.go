// Package poeninja is the concrete poe.ninja API client. It is the only
// component aware of poe.ninja URL shapes; payload interpretation lives in
// the mappers.
package poeninja

import (
	"context"
	"net/url"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/source"
)

// SourceName identifies poe.ninja in logs, metrics and dead letters.
const SourceName = "poeninja"

// Economy categories per game. Currency-style categories go to
// /currencyoverview, the rest to /itemoverview.
var (
	PoE1Categories = []string{"Currency", "Fragment", "UniqueWeapon", "UniqueArmour", "UniqueAccessory", "DivinationCard"}
	PoE2Categories = []string{"Currency", "UniqueWeapon", "UniqueArmour"}

	currencyCategories = map[string]bool{
		"Currency": true,
		"Fragment": true,
	}
)

// Categories returns the economy categories ingested for a game.
func Categories(game domain.Game) []string {
	if game == domain.GamePoE2 {
		return PoE2Categories
	}
	return PoE1Categories
}

// IsCurrencyCategory reports whether a category is served by the
// currencyoverview endpoint rather than itemoverview.
func IsCurrencyCategory(category string) bool {
	return currencyCategories[category]
}

// Client fetches raw poe.ninja payloads for one game. Economy and builds
// live under different base URLs; both share the game's rate budget through
// their source clients.
type Client struct {
	game    domain.Game
	economy *source.Client
	builds  *source.Client
}

// NewClient creates a poe.ninja client for one game.
func NewClient(game domain.Game, economy, builds *source.Client) *Client {
	return &Client{game: game, economy: economy, builds: builds}
}

// Game returns the game this client serves.
func (c *Client) Game() domain.Game { return c.game }

// FetchIndexState retrieves the league index payload.
func (c *Client) FetchIndexState(ctx context.Context) ([]byte, error) {
	return c.economy.Fetch(ctx, "/index-state", nil)
}

// FetchEconomy retrieves one economy overview payload for a league+category.
func (c *Client) FetchEconomy(ctx context.Context, league, category string) ([]byte, error) {
	params := url.Values{
		"league": {league},
		"type":   {category},
	}
	endpoint := "/itemoverview"
	if IsCurrencyCategory(category) {
		endpoint = "/currencyoverview"
	}
	return c.economy.Fetch(ctx, endpoint, params)
}

// FetchLadder retrieves the build ladder payload for a league.
func (c *Client) FetchLadder(ctx context.Context, league string) ([]byte, error) {
	params := url.Values{"league": {league}}
	return c.builds.Fetch(ctx, "/ladder", params)
}
