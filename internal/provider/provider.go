// Package provider decouples ingestion from concrete upstream sources.
// A Provider binds one source to one game and returns canonical batches;
// orchestration never sees source payload shapes or URL layouts.
package provider

import (
	"context"
	"fmt"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/normalize"
)

// Provider is one upstream source bound to one game. Implementations fetch
// raw payloads and normalize them; they perform no persistence.
type Provider interface {
	// Game returns the game this provider serves.
	Game() domain.Game
	// Name identifies the source in logs, metrics and dead letters.
	Name() string
	// Categories lists the economy categories ingested for this game.
	Categories() []string
	// Leagues fetches the source's league index as canonical leagues.
	Leagues(ctx context.Context) (*normalize.Result, error)
	// EconomySnapshot fetches one league+category economy payload as
	// canonical items, modifiers and price snapshots.
	EconomySnapshot(ctx context.Context, league, category string) (*normalize.Result, error)
	// BuildLadder fetches one league's build ladder as character snapshots.
	BuildLadder(ctx context.Context, league string) (*normalize.Result, error)
}

// Registry resolves the provider for a game. Every supported game must be
// registered exactly once; construction fails otherwise so a missing or
// duplicate binding surfaces at startup, not mid-cycle.
type Registry struct {
	providers map[domain.Game]Provider
}

// NewRegistry builds a registry covering all supported games.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[domain.Game]Provider, len(providers))}
	for _, p := range providers {
		if _, dup := r.providers[p.Game()]; dup {
			return nil, fmt.Errorf("duplicate provider for game %q", p.Game())
		}
		r.providers[p.Game()] = p
	}
	for _, game := range domain.Games {
		if _, ok := r.providers[game]; !ok {
			return nil, fmt.Errorf("no provider registered for game %q", game)
		}
	}
	return r, nil
}

// Get returns the provider bound to a game.
func (r *Registry) Get(game domain.Game) (Provider, error) {
	p, ok := r.providers[game]
	if !ok {
		return nil, fmt.Errorf("no provider registered for game %q", game)
	}
	return p, nil
}

// All returns registered providers in stable game order.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.providers))
	for _, game := range domain.Games {
		if p, ok := r.providers[game]; ok {
			out = append(out, p)
		}
	}
	return out
}
