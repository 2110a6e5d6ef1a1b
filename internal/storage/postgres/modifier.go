package postgres

import (
	"context"
	"fmt"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// upsertModifier writes one modifier keyed by slug.
func upsertModifier(ctx context.Context, db dbtx, m *domain.Modifier) error {
	query := `
		INSERT INTO modifiers (slug, game, text, domain, mod_values, parsed, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
			text = EXCLUDED.text,
			domain = EXCLUDED.domain,
			mod_values = EXCLUDED.mod_values,
			parsed = EXCLUDED.parsed,
			tags = EXCLUDED.tags,
			updated_at = now()
	`

	_, err := db.Exec(ctx, query,
		m.Slug,
		m.Game,
		m.Text,
		m.Domain,
		m.Values,
		m.Parsed,
		m.Tags,
	)
	if err != nil {
		return fmt.Errorf("upsert modifier %s: %w", m.Slug, err)
	}
	return nil
}

// GetModifier retrieves a modifier by slug. Returns ErrNotFound if absent.
func (r *Repository) GetModifier(ctx context.Context, slug string) (*domain.Modifier, error) {
	query := `
		SELECT slug, game, text, domain, mod_values, parsed, tags
		FROM modifiers
		WHERE slug = $1
	`

	var m domain.Modifier
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&m.Slug,
		&m.Game,
		&m.Text,
		&m.Domain,
		&m.Values,
		&m.Parsed,
		&m.Tags,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get modifier: %w", err)
	}
	return &m, nil
}
