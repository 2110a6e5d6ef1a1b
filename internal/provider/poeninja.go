package provider

import (
	"context"
	"time"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/normalize"
	"pathofmirrors/internal/source/poeninja"
)

// PoENinja adapts the poe.ninja client to the Provider interface. The
// capture timestamp is taken once per fetch so every snapshot in a batch
// shares it.
type PoENinja struct {
	client *poeninja.Client
	now    func() time.Time
}

var _ Provider = (*PoENinja)(nil)

// PoENinjaOption configures PoENinja.
type PoENinjaOption func(*PoENinja)

// WithClock overrides the capture-time source.
func WithClock(now func() time.Time) PoENinjaOption {
	return func(p *PoENinja) {
		p.now = now
	}
}

// NewPoENinja creates a poe.ninja provider on top of a game-bound client.
func NewPoENinja(client *poeninja.Client, opts ...PoENinjaOption) *PoENinja {
	p := &PoENinja{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PoENinja) Game() domain.Game { return p.client.Game() }

func (p *PoENinja) Name() string { return poeninja.SourceName }

func (p *PoENinja) Categories() []string { return poeninja.Categories(p.client.Game()) }

// Leagues fetches and normalizes the league index.
func (p *PoENinja) Leagues(ctx context.Context) (*normalize.Result, error) {
	raw, err := p.client.FetchIndexState(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.LeaguesFromIndexState(raw, p.client.Game())
}

// EconomySnapshot fetches and normalizes one league+category overview.
func (p *PoENinja) EconomySnapshot(ctx context.Context, league, category string) (*normalize.Result, error) {
	raw, err := p.client.FetchEconomy(ctx, league, category)
	if err != nil {
		return nil, err
	}
	capturedAt := p.now().UnixMilli()
	return normalize.EconomyFromOverview(raw, p.client.Game(), league, category, capturedAt)
}

// BuildLadder fetches and normalizes one league's character ladder.
func (p *PoENinja) BuildLadder(ctx context.Context, league string) (*normalize.Result, error) {
	raw, err := p.client.FetchLadder(ctx, league)
	if err != nil {
		return nil, err
	}
	capturedAt := p.now().UnixMilli()
	return normalize.CharactersFromLadder(raw, p.client.Game(), league, capturedAt)
}
