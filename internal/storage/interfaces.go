package storage

import (
	"context"
	"time"

	"pathofmirrors/internal/domain"
)

// SnapshotCommit is the unit of atomic persistence for one ingestion cycle:
// all entities from one normalized snapshot succeed or none do.
type SnapshotCommit struct {
	Leagues    []*domain.League
	Items      []*domain.CanonicalItem
	Modifiers  []*domain.Modifier
	Prices     []*domain.PriceSnapshot
	Characters []*domain.CharacterSnapshot
}

// Repository is the persistence collaborator for canonical entities and
// snapshot rows. The pipeline depends only on this interface, not on any
// specific datastore.
//
// Canonical entities (leagues, items, modifiers) are upserted by slug so
// repeated ingestion cycles are idempotent and safe under concurrent workers.
// Snapshot rows are insert-only; duplicates are rejected by key.
type Repository interface {
	// UpsertCanonical upserts canonical entities by their identity keys.
	// Calling it twice with the same entity set produces no duplicate rows.
	UpsertCanonical(ctx context.Context, leagues []*domain.League, items []*domain.CanonicalItem, mods []*domain.Modifier) error

	// InsertSnapshots appends time-series rows. Returns ErrDuplicateKey when
	// a row with the same ID already exists; nothing is written in that case.
	InsertSnapshots(ctx context.Context, prices []*domain.PriceSnapshot, chars []*domain.CharacterSnapshot) error

	// CommitSnapshot persists one normalized snapshot atomically (single
	// transaction). Returns ErrConflict on a retryable write race.
	CommitSnapshot(ctx context.Context, commit *SnapshotCommit) error

	// DeleteOlderThan removes snapshot rows with captured_at < cutoff for
	// one game only. Rows of other games are untouched. Returns rows deleted.
	DeleteOlderThan(ctx context.Context, game domain.Game, cutoff int64) (int64, error)

	// RecomputeAggregates rebuilds the daily trend projection for a league
	// from retained price snapshots. Full recomputation, never incremental.
	// Returns the number of trend points written.
	RecomputeAggregates(ctx context.Context, game domain.Game, league string) (int, error)

	// GetLeague retrieves a league by name. Returns ErrNotFound if absent.
	GetLeague(ctx context.Context, game domain.Game, name string) (*domain.League, error)

	// ListActiveLeagues retrieves active leagues for a game, ordered by name.
	ListActiveLeagues(ctx context.Context, game domain.Game) ([]*domain.League, error)

	// GetItem retrieves a canonical item by slug. Returns ErrNotFound if absent.
	GetItem(ctx context.Context, slug string) (*domain.CanonicalItem, error)

	// GetModifier retrieves a modifier by slug. Returns ErrNotFound if absent.
	GetModifier(ctx context.Context, slug string) (*domain.Modifier, error)

	// GetPrices retrieves price snapshots for an item in a league, ordered
	// by captured_at ASC.
	GetPrices(ctx context.Context, game domain.Game, league, itemRef string) ([]*domain.PriceSnapshot, error)

	// GetCharacters retrieves character snapshots for a league, ordered by
	// captured_at ASC.
	GetCharacters(ctx context.Context, game domain.Game, league string) ([]*domain.CharacterSnapshot, error)

	// GetTrends retrieves the trend projection for an item, ordered by day ASC.
	GetTrends(ctx context.Context, game domain.Game, league, itemRef string) ([]*domain.TrendPoint, error)
}

// TrendStore holds the derived trend projection. Split from Repository so an
// analytics backend (ClickHouse) can replace the default Postgres table.
type TrendStore interface {
	// Replace swaps the full projection for (game, league). Idempotent.
	Replace(ctx context.Context, game domain.Game, league string, points []*domain.TrendPoint) error

	// GetByItem retrieves trend points for an item, ordered by day ASC.
	GetByItem(ctx context.Context, game domain.Game, league, itemRef string) ([]*domain.TrendPoint, error)
}

// DeadLetterStore records terminally failed jobs for operator queries.
type DeadLetterStore interface {
	// Insert records a terminal failure.
	Insert(ctx context.Context, d *domain.DeadLetter) error

	// List retrieves dead letters for a game, newest first.
	List(ctx context.Context, game domain.Game) ([]*domain.DeadLetter, error)
}

// LockStore provides at-most-one-in-flight coordination per job key.
// All worker coordination goes through the datastore; workers share no
// in-memory mutable state.
type LockStore interface {
	// TryAcquire takes the lock for key. Returns false when another holder
	// has it and its TTL has not lapsed.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the lock for key. Releasing an unheld key is a no-op.
	Release(ctx context.Context, key string) error
}
