package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// TrendStore implements storage.TrendStore on PostgreSQL.
type TrendStore struct {
	pool *Pool
}

// NewTrendStore creates a Postgres-backed trend store.
func NewTrendStore(pool *Pool) *TrendStore {
	return &TrendStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrendStore = (*TrendStore)(nil)

// Replace swaps the full projection for (game, league) in one transaction.
func (s *TrendStore) Replace(ctx context.Context, game domain.Game, league string, points []*domain.TrendPoint) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM price_trends WHERE game = $1 AND league = $2`,
		game, league,
	); err != nil {
		return fmt.Errorf("clear trend projection: %w", err)
	}

	query := `
		INSERT INTO price_trends (game, league, item_ref, currency, day, min_value, median_value, max_value, sample_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, p := range points {
		if _, err := tx.Exec(ctx, query,
			p.Game,
			p.League,
			p.ItemRef,
			p.Currency,
			p.Day,
			p.MinValue,
			p.MedianValue,
			p.MaxValue,
			p.SampleCount,
		); err != nil {
			return fmt.Errorf("insert trend point: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByItem retrieves trend points for an item, ordered by day ASC.
func (s *TrendStore) GetByItem(ctx context.Context, game domain.Game, league, itemRef string) ([]*domain.TrendPoint, error) {
	query := `
		SELECT game, league, item_ref, currency, day, min_value, median_value, max_value, sample_count
		FROM price_trends
		WHERE game = $1 AND league = $2 AND item_ref = $3
		ORDER BY day ASC, currency ASC
	`

	rows, err := s.pool.Query(ctx, query, game, league, itemRef)
	if err != nil {
		return nil, fmt.Errorf("get trend points: %w", err)
	}
	defer rows.Close()

	return scanTrendPoints(rows)
}

// scanTrendPoints scans multiple rows into a slice of TrendPoint.
func scanTrendPoints(rows pgx.Rows) ([]*domain.TrendPoint, error) {
	var points []*domain.TrendPoint

	for rows.Next() {
		var p domain.TrendPoint
		err := rows.Scan(
			&p.Game,
			&p.League,
			&p.ItemRef,
			&p.Currency,
			&p.Day,
			&p.MinValue,
			&p.MedianValue,
			&p.MaxValue,
			&p.SampleCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trend point row: %w", err)
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend point rows: %w", err)
	}
	return points, nil
}
