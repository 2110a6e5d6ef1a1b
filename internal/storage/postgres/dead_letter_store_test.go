package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

func testDeadLetter(game domain.Game, league string, failedAt int64) *domain.DeadLetter {
	return &domain.DeadLetter{
		ID:       uuid.NewString(),
		Game:     game,
		League:   league,
		Category: "Currency",
		Source:   "poeninja",
		Attempts: 5,
		LastErr:  "status 503",
		FailedAt: failedAt,
	}
}

func TestDeadLetterStoreInsertAndList(t *testing.T) {
	pool := setupTestDB(t)
	store := NewDeadLetterStore(pool)
	ctx := context.Background()

	older := testDeadLetter(domain.GamePoE1, "Settlers", 1756598400000)
	newer := testDeadLetter(domain.GamePoE1, "Settlers", 1756598500000)
	other := testDeadLetter(domain.GamePoE2, "Dawn of the Hunt", 1756598600000)
	require.NoError(t, store.Insert(ctx, older))
	require.NoError(t, store.Insert(ctx, newer))
	require.NoError(t, store.Insert(ctx, other))

	got, err := store.List(ctx, domain.GamePoE1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, newer.ID, got[0].ID)
	require.Equal(t, older.ID, got[1].ID)
	require.Equal(t, "poeninja", got[0].Source)
	require.Equal(t, 5, got[0].Attempts)
}

func TestDeadLetterStoreRejectsDuplicateID(t *testing.T) {
	pool := setupTestDB(t)
	store := NewDeadLetterStore(pool)
	ctx := context.Background()

	d := testDeadLetter(domain.GamePoE1, "Settlers", 1756598400000)
	require.NoError(t, store.Insert(ctx, d))
	require.ErrorIs(t, store.Insert(ctx, d), storage.ErrDuplicateKey)
}

func TestDeadLetterStoreRejectsMissingID(t *testing.T) {
	pool := setupTestDB(t)
	store := NewDeadLetterStore(pool)
	ctx := context.Background()

	d := testDeadLetter(domain.GamePoE1, "Settlers", 1756598400000)
	d.ID = ""
	require.ErrorIs(t, store.Insert(ctx, d), storage.ErrInvalidInput)
}
