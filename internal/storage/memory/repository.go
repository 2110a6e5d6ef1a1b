// Package memory provides in-memory storage implementations for tests and
// local single-process runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
	"pathofmirrors/internal/trends"
)

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	mu         sync.RWMutex
	leagues    map[string]*domain.League        // keyed by game|name
	items      map[string]*domain.CanonicalItem // keyed by slug
	modifiers  map[string]*domain.Modifier      // keyed by slug
	prices     map[string]*domain.PriceSnapshot // keyed by id
	characters map[string]*domain.CharacterSnapshot
	trends     map[string][]*domain.TrendPoint // keyed by game|league
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		leagues:    make(map[string]*domain.League),
		items:      make(map[string]*domain.CanonicalItem),
		modifiers:  make(map[string]*domain.Modifier),
		prices:     make(map[string]*domain.PriceSnapshot),
		characters: make(map[string]*domain.CharacterSnapshot),
		trends:     make(map[string][]*domain.TrendPoint),
	}
}

func leagueKey(game domain.Game, name string) string {
	return game.String() + "|" + name
}

// UpsertCanonical upserts leagues, items and modifiers by their identity keys.
func (r *Repository) UpsertCanonical(_ context.Context, leagues []*domain.League, items []*domain.CanonicalItem, mods []*domain.Modifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCanonicalLocked(leagues, items, mods)
	return nil
}

func (r *Repository) upsertCanonicalLocked(leagues []*domain.League, items []*domain.CanonicalItem, mods []*domain.Modifier) {
	for _, l := range leagues {
		leagueCopy := *l
		r.leagues[leagueKey(l.Game, l.Name)] = &leagueCopy
	}
	for _, it := range items {
		itemCopy := *it
		r.items[it.Slug] = &itemCopy
	}
	for _, m := range mods {
		modCopy := *m
		r.modifiers[m.Slug] = &modCopy
	}
}

// InsertSnapshots appends price and character rows. Returns ErrDuplicateKey
// when any row ID already exists; nothing is written in that case.
func (r *Repository) InsertSnapshots(_ context.Context, prices []*domain.PriceSnapshot, chars []*domain.CharacterSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range prices {
		if _, exists := r.prices[p.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, c := range chars {
		if _, exists := r.characters[c.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}
	r.insertSnapshotsLocked(prices, chars)
	return nil
}

func (r *Repository) insertSnapshotsLocked(prices []*domain.PriceSnapshot, chars []*domain.CharacterSnapshot) {
	for _, p := range prices {
		priceCopy := *p
		r.prices[p.ID] = &priceCopy
	}
	for _, c := range chars {
		charCopy := *c
		r.characters[c.ID] = &charCopy
	}
}

// CommitSnapshot persists one normalized snapshot atomically. Snapshot rows
// that already exist are left untouched rather than failing the commit, so
// re-running a job is idempotent.
func (r *Repository) CommitSnapshot(_ context.Context, commit *storage.SnapshotCommit) error {
	if commit == nil {
		return storage.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertCanonicalLocked(commit.Leagues, commit.Items, commit.Modifiers)
	for _, p := range commit.Prices {
		if _, exists := r.prices[p.ID]; exists {
			continue
		}
		priceCopy := *p
		r.prices[p.ID] = &priceCopy
	}
	for _, c := range commit.Characters {
		if _, exists := r.characters[c.ID]; exists {
			continue
		}
		charCopy := *c
		r.characters[c.ID] = &charCopy
	}
	return nil
}

// DeleteOlderThan removes snapshot rows with captured_at < cutoff for one
// game. Rows of other games are untouched.
func (r *Repository) DeleteOlderThan(_ context.Context, game domain.Game, cutoff int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, p := range r.prices {
		if p.Game == game && p.CapturedAt < cutoff {
			delete(r.prices, id)
			deleted++
		}
	}
	for id, c := range r.characters {
		if c.Game == game && c.CapturedAt < cutoff {
			delete(r.characters, id)
			deleted++
		}
	}
	return deleted, nil
}

// RecomputeAggregates rebuilds the daily trend projection for a league from
// the retained price snapshots.
func (r *Repository) RecomputeAggregates(_ context.Context, game domain.Game, league string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var snapshots []*domain.PriceSnapshot
	for _, p := range r.prices {
		if p.Game == game && p.League == league {
			snapshots = append(snapshots, p)
		}
	}

	points := trends.Compute(snapshots)
	r.trends[leagueKey(game, league)] = points
	return len(points), nil
}

// GetLeague retrieves a league by name.
func (r *Repository) GetLeague(_ context.Context, game domain.Game, name string) (*domain.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, exists := r.leagues[leagueKey(game, name)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	leagueCopy := *l
	return &leagueCopy, nil
}

// ListActiveLeagues retrieves active leagues for a game, ordered by name.
func (r *Repository) ListActiveLeagues(_ context.Context, game domain.Game) ([]*domain.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.League
	for _, l := range r.leagues {
		if l.Game == game && l.Active {
			leagueCopy := *l
			result = append(result, &leagueCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// GetItem retrieves a canonical item by slug.
func (r *Repository) GetItem(_ context.Context, slug string) (*domain.CanonicalItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, exists := r.items[slug]
	if !exists {
		return nil, storage.ErrNotFound
	}
	itemCopy := *it
	return &itemCopy, nil
}

// GetModifier retrieves a modifier by slug.
func (r *Repository) GetModifier(_ context.Context, slug string) (*domain.Modifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.modifiers[slug]
	if !exists {
		return nil, storage.ErrNotFound
	}
	modCopy := *m
	return &modCopy, nil
}

// GetPrices retrieves price snapshots for an item in a league, ordered by
// captured_at ASC.
func (r *Repository) GetPrices(_ context.Context, game domain.Game, league, itemRef string) ([]*domain.PriceSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.PriceSnapshot
	for _, p := range r.prices {
		if p.Game == game && p.League == league && p.ItemRef == itemRef {
			priceCopy := *p
			result = append(result, &priceCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CapturedAt != result[j].CapturedAt {
			return result[i].CapturedAt < result[j].CapturedAt
		}
		return result[i].Currency < result[j].Currency
	})
	return result, nil
}

// GetCharacters retrieves character snapshots for a league, ordered by
// captured_at ASC.
func (r *Repository) GetCharacters(_ context.Context, game domain.Game, league string) ([]*domain.CharacterSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.CharacterSnapshot
	for _, c := range r.characters {
		if c.Game == game && c.League == league {
			charCopy := *c
			result = append(result, &charCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CapturedAt != result[j].CapturedAt {
			return result[i].CapturedAt < result[j].CapturedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetTrends retrieves the trend projection for an item, ordered by day ASC.
func (r *Repository) GetTrends(_ context.Context, game domain.Game, league, itemRef string) ([]*domain.TrendPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.TrendPoint
	for _, tp := range r.trends[leagueKey(game, league)] {
		if tp.ItemRef == itemRef {
			pointCopy := *tp
			result = append(result, &pointCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Day != result[j].Day {
			return result[i].Day < result[j].Day
		}
		return result[i].Currency < result[j].Currency
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.Repository = (*Repository)(nil)
