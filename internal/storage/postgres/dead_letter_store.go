package postgres

import (
	"context"
	"fmt"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// DeadLetterStore implements storage.DeadLetterStore using PostgreSQL.
type DeadLetterStore struct {
	pool *Pool
}

// NewDeadLetterStore creates a new DeadLetterStore.
func NewDeadLetterStore(pool *Pool) *DeadLetterStore {
	return &DeadLetterStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeadLetterStore = (*DeadLetterStore)(nil)

// Insert records a terminal failure. Returns ErrDuplicateKey if the ID exists.
func (s *DeadLetterStore) Insert(ctx context.Context, d *domain.DeadLetter) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO dead_letters (id, game, league, category, source, attempts, last_err, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		d.ID,
		d.Game,
		d.League,
		d.Category,
		d.Source,
		d.Attempts,
		d.LastErr,
		d.FailedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// List retrieves dead letters for a game, newest first.
func (s *DeadLetterStore) List(ctx context.Context, game domain.Game) ([]*domain.DeadLetter, error) {
	query := `
		SELECT id, game, league, category, source, attempts, last_err, failed_at
		FROM dead_letters
		WHERE game = $1
		ORDER BY failed_at DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, game)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var letters []*domain.DeadLetter
	for rows.Next() {
		var d domain.DeadLetter
		err := rows.Scan(
			&d.ID,
			&d.Game,
			&d.League,
			&d.Category,
			&d.Source,
			&d.Attempts,
			&d.LastErr,
			&d.FailedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dead letter row: %w", err)
		}
		letters = append(letters, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letter rows: %w", err)
	}
	return letters, nil
}
