package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
	"pathofmirrors/internal/trends"
)

// dbtx is satisfied by both the pool and a transaction, so the per-entity
// helpers run unchanged inside CommitSnapshot's transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements storage.Repository on PostgreSQL. The trend
// projection is delegated to a TrendStore so an analytics backend can
// replace the default Postgres table.
type Repository struct {
	pool   *Pool
	trends storage.TrendStore
}

// NewRepository creates a Repository. A nil trend store defaults to the
// Postgres-backed one.
func NewRepository(pool *Pool, trendStore storage.TrendStore) *Repository {
	if trendStore == nil {
		trendStore = NewTrendStore(pool)
	}
	return &Repository{pool: pool, trends: trendStore}
}

// Compile-time interface check.
var _ storage.Repository = (*Repository)(nil)

// UpsertCanonical upserts leagues, items and modifiers by their identity keys.
func (r *Repository) UpsertCanonical(ctx context.Context, leagues []*domain.League, items []*domain.CanonicalItem, mods []*domain.Modifier) error {
	return r.upsertCanonical(ctx, r.pool, leagues, items, mods)
}

func (r *Repository) upsertCanonical(ctx context.Context, db dbtx, leagues []*domain.League, items []*domain.CanonicalItem, mods []*domain.Modifier) error {
	for _, l := range leagues {
		if err := upsertLeague(ctx, db, l); err != nil {
			return err
		}
	}
	for _, it := range items {
		if err := upsertItem(ctx, db, it); err != nil {
			return err
		}
	}
	for _, m := range mods {
		if err := upsertModifier(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// InsertSnapshots appends price and character rows. Returns ErrDuplicateKey
// when any row ID already exists; the batch is transactional, so nothing is
// written in that case.
func (r *Repository) InsertSnapshots(ctx context.Context, prices []*domain.PriceSnapshot, chars []*domain.CharacterSnapshot) error {
	if len(prices) == 0 && len(chars) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range prices {
		if err := insertPrice(ctx, tx, p, false); err != nil {
			return err
		}
	}
	for _, c := range chars {
		if err := insertCharacter(ctx, tx, c, false); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CommitSnapshot persists one normalized snapshot in a single transaction.
// Snapshot rows that already exist are left untouched so re-running a job
// is idempotent. Returns ErrConflict on a retryable write race.
func (r *Repository) CommitSnapshot(ctx context.Context, commit *storage.SnapshotCommit) error {
	if commit == nil {
		return storage.ErrInvalidInput
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.upsertCanonical(ctx, tx, commit.Leagues, commit.Items, commit.Modifiers); err != nil {
		if isConflictError(err) {
			return storage.ErrConflict
		}
		return err
	}
	for _, p := range commit.Prices {
		if err := insertPrice(ctx, tx, p, true); err != nil {
			return err
		}
	}
	for _, c := range commit.Characters {
		if err := insertCharacter(ctx, tx, c, true); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isConflictError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DeleteOlderThan removes snapshot rows with captured_at < cutoff for one
// game. Rows of other games are untouched.
func (r *Repository) DeleteOlderThan(ctx context.Context, game domain.Game, cutoff int64) (int64, error) {
	var deleted int64

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM price_snapshots WHERE game = $1 AND captured_at < $2`,
		game, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired price snapshots: %w", err)
	}
	deleted += tag.RowsAffected()

	tag, err = r.pool.Exec(ctx,
		`DELETE FROM character_snapshots WHERE game = $1 AND captured_at < $2`,
		game, cutoff,
	)
	if err != nil {
		return deleted, fmt.Errorf("delete expired character snapshots: %w", err)
	}
	deleted += tag.RowsAffected()

	return deleted, nil
}

// RecomputeAggregates rebuilds the daily trend projection for a league from
// the retained price snapshots. Full recomputation, never incremental.
func (r *Repository) RecomputeAggregates(ctx context.Context, game domain.Game, league string) (int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, game, league, item_ref, currency, value, captured_at
		FROM price_snapshots
		WHERE game = $1 AND league = $2
	`, game, league)
	if err != nil {
		return 0, fmt.Errorf("load price snapshots: %w", err)
	}
	prices, err := scanPrices(rows)
	if err != nil {
		return 0, err
	}

	points := trends.Compute(prices)
	if err := r.trends.Replace(ctx, game, league, points); err != nil {
		return 0, fmt.Errorf("replace trend projection: %w", err)
	}
	return len(points), nil
}

// GetTrends retrieves the trend projection for an item, ordered by day ASC.
func (r *Repository) GetTrends(ctx context.Context, game domain.Game, league, itemRef string) ([]*domain.TrendPoint, error) {
	return r.trends.GetByItem(ctx, game, league, itemRef)
}
