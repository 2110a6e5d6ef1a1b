package postgres

import (
	"context"
	"fmt"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// upsertItem writes one canonical item keyed by slug.
func upsertItem(ctx context.Context, db dbtx, it *domain.CanonicalItem) error {
	query := `
		INSERT INTO canonical_items (slug, game, name, base_type, item_class, rarity, icon)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			base_type = EXCLUDED.base_type,
			item_class = EXCLUDED.item_class,
			rarity = EXCLUDED.rarity,
			icon = EXCLUDED.icon,
			updated_at = now()
	`

	_, err := db.Exec(ctx, query,
		it.Slug,
		it.Game,
		it.Name,
		it.BaseType,
		it.ItemClass,
		it.Rarity,
		it.Icon,
	)
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", it.Slug, err)
	}
	return nil
}

// GetItem retrieves a canonical item by slug. Returns ErrNotFound if absent.
func (r *Repository) GetItem(ctx context.Context, slug string) (*domain.CanonicalItem, error) {
	query := `
		SELECT slug, game, name, base_type, item_class, rarity, icon
		FROM canonical_items
		WHERE slug = $1
	`

	var it domain.CanonicalItem
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&it.Slug,
		&it.Game,
		&it.Name,
		&it.BaseType,
		&it.ItemClass,
		&it.Rarity,
		&it.Icon,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}
