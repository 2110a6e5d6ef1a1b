package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/idhash"
	"pathofmirrors/internal/storage"
)

const dayMs = int64(24 * 60 * 60 * 1000)

func testLeague(game domain.Game, name string, active bool) *domain.League {
	return &domain.League{
		Game:        game,
		Name:        name,
		DisplayName: name,
		Active:      active,
		StartAt:     1756598400000,
	}
}

func testPrice(game domain.Game, league, itemRef string, value float64, capturedAt int64) *domain.PriceSnapshot {
	return &domain.PriceSnapshot{
		ID:         idhash.PriceSnapshotID(game, league, itemRef, domain.CurrencyChaos, capturedAt),
		Game:       game,
		League:     league,
		ItemRef:    itemRef,
		Currency:   domain.CurrencyChaos,
		Value:      value,
		CapturedAt: capturedAt,
	}
}

func testCharacter(game domain.Game, league, account, name string, capturedAt int64) *domain.CharacterSnapshot {
	return &domain.CharacterSnapshot{
		ID:         idhash.CharacterSnapshotID(game, league, account, name, capturedAt),
		Game:       game,
		League:     league,
		Account:    account,
		Character:  name,
		RawPayload: []byte(`{}`),
		CapturedAt: capturedAt,
	}
}

func TestRepositoryUpsertCanonicalIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	item := &domain.CanonicalItem{
		Game: domain.GamePoE1,
		Slug: "poe1:chaos-orb",
		Name: "Chaos Orb",
		Icon: "icon-v1",
	}
	require.NoError(t, repo.UpsertCanonical(ctx, nil, []*domain.CanonicalItem{item}, nil))

	// Second upsert with changed mutable fields wins; no duplicate rows.
	item.Icon = "icon-v2"
	require.NoError(t, repo.UpsertCanonical(ctx, nil, []*domain.CanonicalItem{item}, nil))

	got, err := repo.GetItem(ctx, "poe1:chaos-orb")
	require.NoError(t, err)
	require.Equal(t, "icon-v2", got.Icon)
}

func TestRepositoryListActiveLeagues(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.UpsertCanonical(ctx, []*domain.League{
		testLeague(domain.GamePoE1, "Settlers", true),
		testLeague(domain.GamePoE1, "Affliction", false),
		testLeague(domain.GamePoE1, "Standard", true),
		testLeague(domain.GamePoE2, "Dawn of the Hunt", true),
	}, nil, nil))

	leagues, err := repo.ListActiveLeagues(ctx, domain.GamePoE1)
	require.NoError(t, err)
	require.Len(t, leagues, 2)
	require.Equal(t, "Settlers", leagues[0].Name)
	require.Equal(t, "Standard", leagues[1].Name)
}

func TestRepositoryInsertSnapshotsRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	price := testPrice(domain.GamePoE1, "Settlers", "poe1:chaos-orb", 1.0, 1756598400000)
	require.NoError(t, repo.InsertSnapshots(ctx, []*domain.PriceSnapshot{price}, nil))

	err := repo.InsertSnapshots(ctx, []*domain.PriceSnapshot{price}, nil)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := repo.GetPrices(ctx, domain.GamePoE1, "Settlers", "poe1:chaos-orb")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestRepositoryCommitSnapshotIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	commit := &storage.SnapshotCommit{
		Leagues: []*domain.League{testLeague(domain.GamePoE1, "Settlers", true)},
		Items: []*domain.CanonicalItem{{
			Game: domain.GamePoE1,
			Slug: "poe1:chaos-orb",
			Name: "Chaos Orb",
		}},
		Prices: []*domain.PriceSnapshot{
			testPrice(domain.GamePoE1, "Settlers", "poe1:chaos-orb", 1.0, 1756598400000),
		},
		Characters: []*domain.CharacterSnapshot{
			testCharacter(domain.GamePoE1, "Settlers", "exile#1234", "StormWitch", 1756598400000),
		},
	}

	require.NoError(t, repo.CommitSnapshot(ctx, commit))
	require.NoError(t, repo.CommitSnapshot(ctx, commit))

	prices, err := repo.GetPrices(ctx, domain.GamePoE1, "Settlers", "poe1:chaos-orb")
	require.NoError(t, err)
	require.Len(t, prices, 1)

	chars, err := repo.GetCharacters(ctx, domain.GamePoE1, "Settlers")
	require.NoError(t, err)
	require.Len(t, chars, 1)
}

func TestRepositoryDeleteOlderThanScopedToGame(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	old := int64(1756598400000)
	recent := old + 30*dayMs
	cutoff := old + dayMs

	require.NoError(t, repo.InsertSnapshots(ctx,
		[]*domain.PriceSnapshot{
			testPrice(domain.GamePoE1, "Settlers", "poe1:chaos-orb", 1.0, old),
			testPrice(domain.GamePoE1, "Settlers", "poe1:chaos-orb", 1.1, recent),
			testPrice(domain.GamePoE2, "Dawn of the Hunt", "poe2:exalted-orb", 1.0, old),
		},
		[]*domain.CharacterSnapshot{
			testCharacter(domain.GamePoE1, "Settlers", "exile#1234", "StormWitch", old),
		},
	))

	deleted, err := repo.DeleteOlderThan(ctx, domain.GamePoE1, cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	// Exactly the recent PoE1 row survives.
	prices, err := repo.GetPrices(ctx, domain.GamePoE1, "Settlers", "poe1:chaos-orb")
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.Equal(t, recent, prices[0].CapturedAt)

	// The other game's expired rows are untouched.
	prices, err = repo.GetPrices(ctx, domain.GamePoE2, "Dawn of the Hunt", "poe2:exalted-orb")
	require.NoError(t, err)
	require.Len(t, prices, 1)

	// Sweeping again deletes nothing.
	deleted, err = repo.DeleteOlderThan(ctx, domain.GamePoE1, cutoff)
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestRepositoryRecomputeAggregates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	day := int64(1756598400000)
	day = day - day%dayMs
	require.NoError(t, repo.InsertSnapshots(ctx, []*domain.PriceSnapshot{
		testPrice(domain.GamePoE1, "Settlers", "poe1:divine-orb", 170, day+1000),
		testPrice(domain.GamePoE1, "Settlers", "poe1:divine-orb", 180, day+2000),
		testPrice(domain.GamePoE1, "Settlers", "poe1:divine-orb", 200, day+3000),
	}, nil))

	n, err := repo.RecomputeAggregates(ctx, domain.GamePoE1, "Settlers")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	points, err := repo.GetTrends(ctx, domain.GamePoE1, "Settlers", "poe1:divine-orb")
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, 170.0, points[0].MinValue)
	require.Equal(t, 180.0, points[0].MedianValue)
	require.Equal(t, 200.0, points[0].MaxValue)
	require.Equal(t, 3, points[0].SampleCount)
	require.Equal(t, day, points[0].Day)
}

func TestRepositoryGetMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	_, err := repo.GetItem(ctx, "poe1:nothing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.GetLeague(ctx, domain.GamePoE1, "Nothing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.GetModifier(ctx, "poe1:nothing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
