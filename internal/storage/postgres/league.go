package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// upsertLeague writes one league keyed by (game, name).
func upsertLeague(ctx context.Context, db dbtx, l *domain.League) error {
	query := `
		INSERT INTO leagues (game, name, display_name, hardcore, active, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game, name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			hardcore = EXCLUDED.hardcore,
			active = EXCLUDED.active,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			updated_at = now()
	`

	_, err := db.Exec(ctx, query,
		l.Game,
		l.Name,
		l.DisplayName,
		l.Hardcore,
		l.Active,
		l.StartAt,
		l.EndAt,
	)
	if err != nil {
		return fmt.Errorf("upsert league %s: %w", l.Name, err)
	}
	return nil
}

// GetLeague retrieves a league by name. Returns ErrNotFound if absent.
func (r *Repository) GetLeague(ctx context.Context, game domain.Game, name string) (*domain.League, error) {
	query := `
		SELECT game, name, display_name, hardcore, active, start_at, end_at
		FROM leagues
		WHERE game = $1 AND name = $2
	`

	var l domain.League
	err := r.pool.QueryRow(ctx, query, game, name).Scan(
		&l.Game,
		&l.Name,
		&l.DisplayName,
		&l.Hardcore,
		&l.Active,
		&l.StartAt,
		&l.EndAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get league: %w", err)
	}
	return &l, nil
}

// ListActiveLeagues retrieves active leagues for a game, ordered by name.
func (r *Repository) ListActiveLeagues(ctx context.Context, game domain.Game) ([]*domain.League, error) {
	query := `
		SELECT game, name, display_name, hardcore, active, start_at, end_at
		FROM leagues
		WHERE game = $1 AND active
		ORDER BY name ASC
	`

	rows, err := r.pool.Query(ctx, query, game)
	if err != nil {
		return nil, fmt.Errorf("list active leagues: %w", err)
	}
	defer rows.Close()

	return scanLeagues(rows)
}

// scanLeagues scans multiple rows into a slice of League.
func scanLeagues(rows pgx.Rows) ([]*domain.League, error) {
	var leagues []*domain.League

	for rows.Next() {
		var l domain.League
		err := rows.Scan(
			&l.Game,
			&l.Name,
			&l.DisplayName,
			&l.Hardcore,
			&l.Active,
			&l.StartAt,
			&l.EndAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan league row: %w", err)
		}
		leagues = append(leagues, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate league rows: %w", err)
	}
	return leagues, nil
}
