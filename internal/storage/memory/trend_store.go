package memory

import (
	"context"
	"sort"
	"sync"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// TrendStore is an in-memory implementation of storage.TrendStore.
type TrendStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TrendPoint // keyed by game|league
}

// NewTrendStore creates an empty in-memory trend store.
func NewTrendStore() *TrendStore {
	return &TrendStore{
		data: make(map[string][]*domain.TrendPoint),
	}
}

// Replace swaps the full projection for (game, league).
func (s *TrendStore) Replace(_ context.Context, game domain.Game, league string, points []*domain.TrendPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]*domain.TrendPoint, len(points))
	for i, p := range points {
		pointCopy := *p
		copied[i] = &pointCopy
	}
	s.data[leagueKey(game, league)] = copied
	return nil
}

// GetByItem retrieves trend points for an item, ordered by day ASC.
func (s *TrendStore) GetByItem(_ context.Context, game domain.Game, league, itemRef string) ([]*domain.TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrendPoint
	for _, p := range s.data[leagueKey(game, league)] {
		if p.ItemRef == itemRef {
			pointCopy := *p
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
var _ storage.TrendStore = (*TrendStore)(nil)
