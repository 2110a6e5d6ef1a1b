// Package trends computes the derived daily price aggregates.
// Computation is pure: the projection is always fully recomputable from
// retained price snapshots.
package trends

import (
	"sort"
	"time"

	"pathofmirrors/internal/domain"
)

const dayMs = int64(24 * time.Hour / time.Millisecond)

// dayFloor truncates a Unix ms timestamp to UTC midnight.
func dayFloor(ts int64) int64 {
	return ts - ts%dayMs
}

type groupKey struct {
	itemRef  string
	currency string
	day      int64
}

// Compute builds per-item daily min/median/max aggregates from price
// snapshots. All input rows are expected to share one (game, league); rows
// are grouped by (item_ref, currency, UTC day). Output ordering is
// deterministic: item_ref, currency, day ascending.
func Compute(prices []*domain.PriceSnapshot) []*domain.TrendPoint {
	if len(prices) == 0 {
		return nil
	}

	groups := make(map[groupKey][]float64)
	meta := make(map[groupKey]*domain.PriceSnapshot)

	for _, p := range prices {
		key := groupKey{itemRef: p.ItemRef, currency: p.Currency, day: dayFloor(p.CapturedAt)}
		groups[key] = append(groups[key], p.Value)
		if _, ok := meta[key]; !ok {
			meta[key] = p
		}
	}

	points := make([]*domain.TrendPoint, 0, len(groups))
	for key, values := range groups {
		sort.Float64s(values)
		src := meta[key]
		points = append(points, &domain.TrendPoint{
			Game:        src.Game,
			League:      src.League,
			ItemRef:     key.itemRef,
			Currency:    key.currency,
			Day:         key.day,
			MinValue:    values[0],
			MedianValue: median(values),
			MaxValue:    values[len(values)-1],
			SampleCount: len(values),
		})
	}

	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.ItemRef != b.ItemRef {
			return a.ItemRef < b.ItemRef
		}
		if a.Currency != b.Currency {
			return a.Currency < b.Currency
		}
		return a.Day < b.Day
	})

	return points
}

// median returns the middle value of an already sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
