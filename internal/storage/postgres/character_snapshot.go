package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// insertCharacter appends one character row. With ignoreDuplicate the insert
// is a no-op when the ID exists; otherwise a duplicate maps to ErrDuplicateKey.
func insertCharacter(ctx context.Context, db dbtx, c *domain.CharacterSnapshot, ignoreDuplicate bool) error {
	query := `
		INSERT INTO character_snapshots (id, game, league, account, character_name, level, class_name, raw_payload, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if ignoreDuplicate {
		query += ` ON CONFLICT (id) DO NOTHING`
	}

	_, err := db.Exec(ctx, query,
		c.ID,
		c.Game,
		c.League,
		c.Account,
		c.Character,
		c.Level,
		c.ClassName,
		c.RawPayload,
		c.CapturedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert character snapshot: %w", err)
	}
	return nil
}

// GetCharacters retrieves character snapshots for a league, ordered by
// captured_at ASC.
func (r *Repository) GetCharacters(ctx context.Context, game domain.Game, league string) ([]*domain.CharacterSnapshot, error) {
	query := `
		SELECT id, game, league, account, character_name, level, class_name, raw_payload, captured_at
		FROM character_snapshots
		WHERE game = $1 AND league = $2
		ORDER BY captured_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, game, league)
	if err != nil {
		return nil, fmt.Errorf("get character snapshots: %w", err)
	}
	defer rows.Close()

	return scanCharacters(rows)
}

// scanCharacters scans multiple rows into a slice of CharacterSnapshot.
func scanCharacters(rows pgx.Rows) ([]*domain.CharacterSnapshot, error) {
	var chars []*domain.CharacterSnapshot

	for rows.Next() {
		var c domain.CharacterSnapshot
		err := rows.Scan(
			&c.ID,
			&c.Game,
			&c.League,
			&c.Account,
			&c.Character,
			&c.Level,
			&c.ClassName,
			&c.RawPayload,
			&c.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan character snapshot row: %w", err)
		}
		chars = append(chars, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate character snapshot rows: %w", err)
	}
	return chars, nil
}
