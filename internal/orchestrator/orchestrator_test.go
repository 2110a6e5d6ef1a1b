package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/idhash"
	"pathofmirrors/internal/normalize"
	"pathofmirrors/internal/provider"
	"pathofmirrors/internal/queue"
	"pathofmirrors/internal/source"
	"pathofmirrors/internal/storage/memory"
)

// fakeProvider serves one game from canned results and counts calls.
type fakeProvider struct {
	game       domain.Game
	categories []string

	leagues    *normalize.Result
	economy    func(league, category string) (*normalize.Result, error)
	ladder     func(league string) (*normalize.Result, error)
	economyCnt atomic.Int64
}

func (f *fakeProvider) Game() domain.Game    { return f.game }
func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) Categories() []string { return f.categories }

func (f *fakeProvider) Leagues(context.Context) (*normalize.Result, error) {
	if f.leagues == nil {
		return &normalize.Result{}, nil
	}
	return f.leagues, nil
}

func (f *fakeProvider) EconomySnapshot(_ context.Context, league, category string) (*normalize.Result, error) {
	f.economyCnt.Add(1)
	if f.economy == nil {
		return &normalize.Result{}, nil
	}
	return f.economy(league, category)
}

func (f *fakeProvider) BuildLadder(_ context.Context, league string) (*normalize.Result, error) {
	if f.ladder == nil {
		return &normalize.Result{}, nil
	}
	return f.ladder(league)
}

func settlersLeague() *normalize.Result {
	return &normalize.Result{
		Leagues: []*domain.League{{
			Game:        domain.GamePoE1,
			Name:        "Settlers",
			DisplayName: "Settlers of Kalguur",
			Active:      true,
		}},
	}
}

func economyResult(capturedAt int64) *normalize.Result {
	slug := "poe1:chaos-orb"
	return &normalize.Result{
		Items: []*domain.CanonicalItem{{
			Game: domain.GamePoE1,
			Slug: slug,
			Name: "Chaos Orb",
		}},
		Prices: []*domain.PriceSnapshot{{
			ID:         idhash.PriceSnapshotID(domain.GamePoE1, "Settlers", slug, domain.CurrencyChaos, capturedAt),
			Game:       domain.GamePoE1,
			League:     "Settlers",
			ItemRef:    slug,
			Currency:   domain.CurrencyChaos,
			Value:      1.0,
			CapturedAt: capturedAt,
		}},
	}
}

type fixture struct {
	orch        *Orchestrator
	repo        *memory.Repository
	deadLetters *memory.DeadLetterStore
	locks       *memory.LockStore
	jobs        *queue.Memory
}

func newFixture(t *testing.T, p provider.Provider, opts Options) *fixture {
	t.Helper()

	f := &fixture{
		repo:        memory.NewRepository(),
		deadLetters: memory.NewDeadLetterStore(),
		locks:       memory.NewLockStore(),
		jobs:        queue.NewMemory(),
	}

	poe2 := &fakeProvider{game: domain.GamePoE2, categories: []string{"Currency"}}
	reg, err := provider.NewRegistry(p, poe2)
	require.NoError(t, err)

	opts.Repository = f.repo
	opts.DeadLetters = f.deadLetters
	opts.Locks = f.locks
	opts.Queue = f.jobs
	opts.Providers = reg
	opts.Logger = zerolog.Nop()
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Microsecond
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = time.Millisecond
	}
	f.orch = New(opts)
	return f
}

func TestRunOnceCommitsSnapshots(t *testing.T) {
	ctx := context.Background()
	capturedAt := time.Now().UnixMilli()

	p := &fakeProvider{
		game:       domain.GamePoE1,
		categories: []string{"Currency"},
		leagues:    settlersLeague(),
		economy: func(league, category string) (*normalize.Result, error) {
			return economyResult(capturedAt), nil
		},
	}
	f := newFixture(t, p, Options{})

	require.NoError(t, f.orch.RunOnce(ctx))

	// League refresh persisted the league.
	league, err := f.repo.GetLeague(ctx, domain.GamePoE1, "Settlers")
	require.NoError(t, err)
	require.True(t, league.Active)

	// The economy snapshot landed atomically.
	item, err := f.repo.GetItem(ctx, "poe1:chaos-orb")
	require.NoError(t, err)
	require.Equal(t, "Chaos Orb", item.Name)

	prices, err := f.repo.GetPrices(ctx, domain.GamePoE1, "Settlers", "poe1:chaos-orb")
	require.NoError(t, err)
	require.Len(t, prices, 1)

	letters, err := f.deadLetters.List(ctx, domain.GamePoE1)
	require.NoError(t, err)
	require.Empty(t, letters)

	// Everything acked; nothing left in the queue.
	require.Zero(t, f.jobs.Len())
}

func TestRunOnceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	capturedAt := time.Now().UnixMilli()

	p := &fakeProvider{
		game:       domain.GamePoE1,
		categories: []string{"Currency"},
		leagues:    settlersLeague(),
		economy: func(league, category string) (*normalize.Result, error) {
			// Same capture time both cycles: identical snapshot IDs.
			return economyResult(capturedAt), nil
		},
	}
	f := newFixture(t, p, Options{})

	require.NoError(t, f.orch.RunOnce(ctx))
	require.NoError(t, f.orch.RunOnce(ctx))

	prices, err := f.repo.GetPrices(ctx, domain.GamePoE1, "Settlers", "poe1:chaos-orb")
	require.NoError(t, err)
	require.Len(t, prices, 1)
}

func TestTransientFailureRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()

	p := &fakeProvider{
		game:       domain.GamePoE1,
		categories: []string{"Currency"},
		leagues:    settlersLeague(),
		economy: func(league, category string) (*normalize.Result, error) {
			return nil, &source.TransientFetchError{Endpoint: "/currencyoverview", Status: 503, Err: errors.New("unavailable")}
		},
	}
	f := newFixture(t, p, Options{RetryCap: 3})

	require.NoError(t, f.orch.RunOnce(ctx))

	// Initial attempt plus retries up to the cap.
	require.Equal(t, int64(3), p.economyCnt.Load())

	letters, err := f.deadLetters.List(ctx, domain.GamePoE1)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	require.Equal(t, "Currency", letters[0].Category)
	require.Equal(t, "Settlers", letters[0].League)
	require.Equal(t, "fake", letters[0].Source)
	require.Equal(t, 3, letters[0].Attempts)
	require.Contains(t, letters[0].LastErr, "unavailable")

	// The dead-lettered job is out of the queue.
	require.Zero(t, f.jobs.Len())
}

func TestPermanentFailureDeadLettersWithoutRetry(t *testing.T) {
	ctx := context.Background()

	p := &fakeProvider{
		game:       domain.GamePoE1,
		categories: []string{"Currency"},
		leagues:    settlersLeague(),
		economy: func(league, category string) (*normalize.Result, error) {
			return nil, &source.PermanentFetchError{Endpoint: "/currencyoverview", Status: 404, Err: errors.New("no such league")}
		},
	}
	f := newFixture(t, p, Options{RetryCap: 5})

	require.NoError(t, f.orch.RunOnce(ctx))

	require.Equal(t, int64(1), p.economyCnt.Load())

	letters, err := f.deadLetters.List(ctx, domain.GamePoE1)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	require.Equal(t, 1, letters[0].Attempts)
}

func TestHeldLockBoundsAttempts(t *testing.T) {
	ctx := context.Background()

	p := &fakeProvider{
		game:       domain.GamePoE1,
		categories: []string{"Currency"},
		leagues:    settlersLeague(),
		economy: func(league, category string) (*normalize.Result, error) {
			return economyResult(time.Now().UnixMilli()), nil
		},
	}
	f := newFixture(t, p, Options{RetryCap: 3})

	// A wedged holder owns both job keys.
	spec := JobSpec{Kind: KindEconomy, Game: domain.GamePoE1, League: "Settlers", Category: "Currency"}
	held, err := f.locks.TryAcquire(ctx, spec.Key(), time.Hour)
	require.NoError(t, err)
	require.True(t, held)
	ladderSpec := JobSpec{Kind: KindLadder, Game: domain.GamePoE1, League: "Settlers"}
	held, err = f.locks.TryAcquire(ctx, ladderSpec.Key(), time.Hour)
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, f.orch.RunOnce(ctx))

	// The job never ran; it waited out its attempts and dead-lettered.
	require.Zero(t, p.economyCnt.Load())
	letters, err := f.deadLetters.List(ctx, domain.GamePoE1)
	require.NoError(t, err)
	require.Len(t, letters, 2)
}

func TestEnqueueCycleDeduplicatesJobs(t *testing.T) {
	ctx := context.Background()

	p := &fakeProvider{
		game:       domain.GamePoE1,
		categories: []string{"Currency", "UniqueWeapon"},
		leagues:    settlersLeague(),
	}
	f := newFixture(t, p, Options{})

	require.NoError(t, f.orch.EnqueueCycle(ctx))
	// poe1: 2 economy + 1 ladder; poe2 has no active leagues yet.
	require.Equal(t, 3, f.jobs.Len())

	// A second cycle while jobs are still queued adds nothing.
	require.NoError(t, f.orch.EnqueueCycle(ctx))
	require.Equal(t, 3, f.jobs.Len())
}

func TestRunOnceContinuesPastSkippedRecords(t *testing.T) {
	ctx := context.Background()
	capturedAt := time.Now().UnixMilli()

	p := &fakeProvider{
		game:       domain.GamePoE1,
		categories: []string{"Currency"},
		leagues:    settlersLeague(),
		economy: func(league, category string) (*normalize.Result, error) {
			result := economyResult(capturedAt)
			result.Skipped = []normalize.Skip{{RecordRef: "currency line 7", Err: errors.New("missing currencyTypeName")}}
			return result, nil
		},
	}
	f := newFixture(t, p, Options{})

	require.NoError(t, f.orch.RunOnce(ctx))

	// Valid records committed despite the skip; no dead letter.
	prices, err := f.repo.GetPrices(ctx, domain.GamePoE1, "Settlers", "poe1:chaos-orb")
	require.NoError(t, err)
	require.Len(t, prices, 1)

	letters, err := f.deadLetters.List(ctx, domain.GamePoE1)
	require.NoError(t, err)
	require.Empty(t, letters)
}
