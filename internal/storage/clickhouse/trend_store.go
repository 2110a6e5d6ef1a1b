package clickhouse

import (
	"context"
	"fmt"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// TrendStore implements storage.TrendStore on ClickHouse. Replace relies on
// lightweight deletes, so the table uses a plain MergeTree engine and reads
// never need FINAL.
type TrendStore struct {
	conn *Conn
}

// NewTrendStore creates a new TrendStore.
func NewTrendStore(conn *Conn) *TrendStore {
	return &TrendStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TrendStore = (*TrendStore)(nil)

// Replace swaps the full trend projection for (game, league).
func (s *TrendStore) Replace(ctx context.Context, game domain.Game, league string, points []*domain.TrendPoint) error {
	err := s.conn.Exec(ctx, `
		DELETE FROM price_trends WHERE game = ? AND league = ?
	`, string(game), league)
	if err != nil {
		return fmt.Errorf("delete trends %s/%s: %w", game, league, err)
	}

	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_trends (
			game, league, item_ref, currency, day,
			min_value, median_value, max_value, sample_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare trend batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			string(p.Game), p.League, p.ItemRef, p.Currency, p.Day,
			p.MinValue, p.MedianValue, p.MaxValue, uint32(p.SampleCount),
		)
		if err != nil {
			return fmt.Errorf("append trend point: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send trend batch: %w", err)
	}

	return nil
}

// GetByItem retrieves trend points for an item, ordered by day ASC.
func (s *TrendStore) GetByItem(ctx context.Context, game domain.Game, league, itemRef string) ([]*domain.TrendPoint, error) {
	query := `
		SELECT game, league, item_ref, currency, day,
		       min_value, median_value, max_value, sample_count
		FROM price_trends
		WHERE game = ? AND league = ? AND item_ref = ?
		ORDER BY day ASC, currency ASC
	`

	rows, err := s.conn.Query(ctx, query, string(game), league, itemRef)
	if err != nil {
		return nil, fmt.Errorf("query trends: %w", err)
	}
	defer rows.Close()

	var points []*domain.TrendPoint
	for rows.Next() {
		var p domain.TrendPoint
		var gameCol string
		var sampleCount uint32

		err := rows.Scan(
			&gameCol, &p.League, &p.ItemRef, &p.Currency, &p.Day,
			&p.MinValue, &p.MedianValue, &p.MaxValue, &sampleCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}

		p.Game = domain.Game(gameCol)
		p.SampleCount = int(sampleCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend rows: %w", err)
	}

	return points, nil
}
