package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// insertPrice appends one price row. With ignoreDuplicate the insert is a
// no-op when the ID exists; otherwise a duplicate maps to ErrDuplicateKey.
func insertPrice(ctx context.Context, db dbtx, p *domain.PriceSnapshot, ignoreDuplicate bool) error {
	query := `
		INSERT INTO price_snapshots (id, game, league, item_ref, currency, value, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if ignoreDuplicate {
		query += ` ON CONFLICT (id) DO NOTHING`
	}

	_, err := db.Exec(ctx, query,
		p.ID,
		p.Game,
		p.League,
		p.ItemRef,
		p.Currency,
		p.Value,
		p.CapturedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert price snapshot: %w", err)
	}
	return nil
}

// GetPrices retrieves price snapshots for an item in a league, ordered by
// captured_at ASC.
func (r *Repository) GetPrices(ctx context.Context, game domain.Game, league, itemRef string) ([]*domain.PriceSnapshot, error) {
	query := `
		SELECT id, game, league, item_ref, currency, value, captured_at
		FROM price_snapshots
		WHERE game = $1 AND league = $2 AND item_ref = $3
		ORDER BY captured_at ASC, currency ASC
	`

	rows, err := r.pool.Query(ctx, query, game, league, itemRef)
	if err != nil {
		return nil, fmt.Errorf("get price snapshots: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// scanPrices scans multiple rows into a slice of PriceSnapshot.
func scanPrices(rows pgx.Rows) ([]*domain.PriceSnapshot, error) {
	defer rows.Close()

	var prices []*domain.PriceSnapshot
	for rows.Next() {
		var p domain.PriceSnapshot
		err := rows.Scan(
			&p.ID,
			&p.Game,
			&p.League,
			&p.ItemRef,
			&p.Currency,
			&p.Value,
			&p.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price snapshot row: %w", err)
		}
		prices = append(prices, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price snapshot rows: %w", err)
	}
	return prices, nil
}
