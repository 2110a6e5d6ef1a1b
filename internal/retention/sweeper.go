// Package retention enforces the rolling snapshot window and keeps the
// derived trend projection aligned with what is retained. Sweeps run on
// their own schedule and never block ingestion; a failed sweep leaves extra
// rows behind for the next pass, which is safe.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/observability"
	"pathofmirrors/internal/storage"
)

// DefaultWindow is the rolling retention window for snapshot rows.
const DefaultWindow = 28 * 24 * time.Hour

// Sweeper deletes expired snapshot rows per game and recomputes trend
// aggregates for every active league afterwards.
type Sweeper struct {
	repo    storage.Repository
	window  time.Duration
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Options for creating a Sweeper.
type Options struct {
	Repository storage.Repository
	Window     time.Duration // zero takes DefaultWindow
	Logger     zerolog.Logger
	Metrics    *observability.Metrics
}

// New creates a Sweeper.
func New(opts Options) *Sweeper {
	s := &Sweeper{
		repo:    opts.Repository,
		window:  opts.Window,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}
	if s.window <= 0 {
		s.window = DefaultWindow
	}
	return s
}

// Run sweeps at every interval tick until the context is cancelled. Sweep
// errors are logged and counted, never fatal.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("retention sweep failed")
			}
		}
	}
}

// Sweep performs one full pass over all games: delete rows older than the
// window, then rebuild aggregates per active league. Idempotent; a second
// run over the same data deletes nothing and recomputes identical points.
func (s *Sweeper) Sweep(ctx context.Context) error {
	start := s.now()
	cutoff := start.Add(-s.window).UnixMilli()

	var errs []error
	for _, game := range domain.Games {
		if err := s.sweepGame(ctx, game, cutoff); err != nil {
			if s.metrics != nil {
				s.metrics.SweepErrors.WithLabelValues(game.String()).Inc()
			}
			errs = append(errs, fmt.Errorf("game %s: %w", game, err))
		}
	}

	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		if len(errs) == 0 {
			s.metrics.LastSuccessfulSweep.SetToCurrentTime()
		}
	}
	return errors.Join(errs...)
}

func (s *Sweeper) sweepGame(ctx context.Context, game domain.Game, cutoff int64) error {
	deleted, err := s.repo.DeleteOlderThan(ctx, game, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired rows: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SweepDeletedRows.WithLabelValues(game.String()).Add(float64(deleted))
	}

	leagues, err := s.repo.ListActiveLeagues(ctx, game)
	if err != nil {
		return fmt.Errorf("list active leagues: %w", err)
	}

	var points int
	var errs []error
	for _, league := range leagues {
		n, err := s.repo.RecomputeAggregates(ctx, game, league.Name)
		if err != nil {
			// One league's failure must not stop the rest of the pass.
			errs = append(errs, fmt.Errorf("recompute %s: %w", league.Name, err))
			continue
		}
		points += n
	}
	if s.metrics != nil {
		s.metrics.SweepTrendPoints.WithLabelValues(game.String()).Add(float64(points))
	}

	s.logger.Info().
		Str("game", game.String()).
		Int64("deleted", deleted).
		Int("leagues", len(leagues)).
		Int("trend_points", points).
		Msg("retention sweep completed")
	return errors.Join(errs...)
}
