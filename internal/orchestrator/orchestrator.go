package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/normalize"
	"pathofmirrors/internal/observability"
	"pathofmirrors/internal/provider"
	"pathofmirrors/internal/queue"
	"pathofmirrors/internal/source"
	"pathofmirrors/internal/storage"
)

// Default orchestration settings.
const (
	DefaultWorkers    = 4
	DefaultRetryCap   = 5
	DefaultRetryDelay = 15 * time.Second
	DefaultMaxDelay   = 10 * time.Minute
	DefaultJobTimeout = 2 * time.Minute
	DefaultLockTTL    = 5 * time.Minute

	dequeuePollInterval = time.Second
	drainWait           = 100 * time.Millisecond
)

// Orchestrator runs the ingestion pipeline: it refreshes leagues, enqueues
// one job per (game, league, category) plus a ladder job per league, and
// drives a worker pool over the queue.
type Orchestrator struct {
	repo        storage.Repository
	deadLetters storage.DeadLetterStore
	locks       storage.LockStore
	jobs        queue.Queue
	providers   *provider.Registry

	workers    int
	retryCap   int
	retryDelay time.Duration
	maxDelay   time.Duration
	jobTimeout time.Duration
	lockTTL    time.Duration

	logger  zerolog.Logger
	metrics *observability.Metrics
}

// Options for creating an Orchestrator.
type Options struct {
	// Required collaborators.
	Repository  storage.Repository
	DeadLetters storage.DeadLetterStore
	Locks       storage.LockStore
	Queue       queue.Queue
	Providers   *provider.Registry

	// Tuning; zero values take defaults.
	Workers    int
	RetryCap   int
	RetryDelay time.Duration
	MaxDelay   time.Duration
	JobTimeout time.Duration
	LockTTL    time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		repo:        opts.Repository,
		deadLetters: opts.DeadLetters,
		locks:       opts.Locks,
		jobs:        opts.Queue,
		providers:   opts.Providers,
		workers:     opts.Workers,
		retryCap:    opts.RetryCap,
		retryDelay:  opts.RetryDelay,
		maxDelay:    opts.MaxDelay,
		jobTimeout:  opts.JobTimeout,
		lockTTL:     opts.LockTTL,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if o.workers <= 0 {
		o.workers = DefaultWorkers
	}
	if o.retryCap <= 0 {
		o.retryCap = DefaultRetryCap
	}
	if o.retryDelay <= 0 {
		o.retryDelay = DefaultRetryDelay
	}
	if o.maxDelay <= 0 {
		o.maxDelay = DefaultMaxDelay
	}
	if o.jobTimeout <= 0 {
		o.jobTimeout = DefaultJobTimeout
	}
	if o.lockTTL <= 0 {
		o.lockTTL = DefaultLockTTL
	}
	return o
}

// Run drives periodic ingestion until the context is cancelled: an enqueue
// cycle at every interval tick, with a worker pool consuming the queue
// continuously.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.workerLoop(ctx)
		}()
	}

	if err := o.EnqueueCycle(ctx); err != nil {
		o.logger.Error().Err(err).Msg("enqueue cycle failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			if err := o.EnqueueCycle(ctx); err != nil {
				o.logger.Error().Err(err).Msg("enqueue cycle failed")
			}
		}
	}
}

// RunOnce performs a single cycle: enqueue everything, then drain all ready
// jobs. Jobs delayed by retry backoff stay queued for the next run.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	if err := o.EnqueueCycle(ctx); err != nil {
		return err
	}

	// An empty queue may still hold jobs in retry backoff; wait one short
	// grace period before concluding the cycle is drained.
	waited := false
	for {
		job, err := o.jobs.Dequeue(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			if waited {
				return nil
			}
			waited = true
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(drainWait):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("dequeue: %w", err)
		}
		waited = false
		o.processJob(ctx, job)
	}
}

// EnqueueCycle refreshes each game's league set and enqueues one job per
// (active league, category) plus a ladder job per active league. A job
// already pending or in flight under the same key is not duplicated.
func (o *Orchestrator) EnqueueCycle(ctx context.Context) error {
	var errs []error
	for _, p := range o.providers.All() {
		if err := o.enqueueGame(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("game %s: %w", p.Game(), err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) enqueueGame(ctx context.Context, p provider.Provider) error {
	if err := o.refreshLeagues(ctx, p); err != nil {
		// Stale league data is usable; keep going with what the store has.
		o.logger.Warn().Err(err).Str("game", p.Game().String()).Msg("league refresh failed")
	}

	leagues, err := o.repo.ListActiveLeagues(ctx, p.Game())
	if err != nil {
		return fmt.Errorf("list active leagues: %w", err)
	}

	var enqueued int
	for _, league := range leagues {
		for _, category := range p.Categories() {
			spec := JobSpec{Kind: KindEconomy, Game: p.Game(), League: league.Name, Category: category}
			if err := o.enqueue(ctx, spec); err != nil {
				return err
			}
			enqueued++
		}
		spec := JobSpec{Kind: KindLadder, Game: p.Game(), League: league.Name}
		if err := o.enqueue(ctx, spec); err != nil {
			return err
		}
		enqueued++
	}

	o.logger.Info().
		Str("game", p.Game().String()).
		Int("leagues", len(leagues)).
		Int("jobs", enqueued).
		Msg("cycle enqueued")
	return nil
}

func (o *Orchestrator) enqueue(ctx context.Context, spec JobSpec) error {
	payload, err := spec.Encode()
	if err != nil {
		return err
	}
	if err := o.jobs.Enqueue(ctx, queue.NewJob(spec.Key(), payload)); err != nil {
		return fmt.Errorf("enqueue %s: %w", spec, err)
	}
	return nil
}

// refreshLeagues pulls the provider's league index and upserts it so league
// lifecycle changes (new league, league ended) are picked up each cycle.
func (o *Orchestrator) refreshLeagues(ctx context.Context, p provider.Provider) error {
	result, err := p.Leagues(ctx)
	if err != nil {
		return err
	}
	if len(result.Leagues) == 0 {
		return nil
	}
	if err := o.repo.UpsertCanonical(ctx, result.Leagues, nil, nil); err != nil {
		return fmt.Errorf("upsert leagues: %w", err)
	}
	return nil
}

func (o *Orchestrator) workerLoop(ctx context.Context) {
	for {
		job, err := o.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, queue.ErrEmpty) {
				o.logger.Error().Err(err).Msg("dequeue failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeuePollInterval):
			}
			continue
		}
		o.processJob(ctx, job)
	}
}

// processJob runs one job end to end and settles it with the queue: ack on
// success, nack with backoff on retryable failure, discard plus dead letter
// on terminal failure.
func (o *Orchestrator) processJob(ctx context.Context, job *queue.Job) {
	spec, err := DecodeJobSpec(job.Payload)
	if err != nil {
		// Undecodable payloads can never succeed.
		o.deadLetter(ctx, JobSpec{}, job, err)
		return
	}

	locked, err := o.locks.TryAcquire(ctx, spec.Key(), o.lockTTL)
	if err != nil {
		o.logger.Error().Err(err).Str("job", spec.Key()).Msg("lock acquire failed")
		o.retryOrDeadLetter(ctx, spec, job, err)
		return
	}
	if !locked {
		// Another worker holds this job key; try again later. The nack
		// counts an attempt, which bounds how long a job can wait on a
		// wedged holder before dead-lettering.
		o.retryOrDeadLetter(ctx, spec, job, errors.New("job lock held elsewhere"))
		return
	}
	defer func() {
		if err := o.locks.Release(ctx, spec.Key()); err != nil {
			o.logger.Error().Err(err).Str("job", spec.Key()).Msg("lock release failed")
		}
	}()

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, o.jobTimeout)
	err = o.runJob(jobCtx, spec)
	cancel()

	if o.metrics != nil {
		o.metrics.JobDuration.WithLabelValues(spec.Game.String(), spec.Category).
			Observe(time.Since(start).Seconds())
	}

	if err == nil {
		if ackErr := o.jobs.Ack(ctx, job.ID); ackErr != nil {
			o.logger.Error().Err(ackErr).Str("job", spec.Key()).Msg("ack failed")
		}
		return
	}

	if source.IsPermanent(err) {
		// The upstream rejected the request shape; retrying cannot help.
		o.deadLetter(ctx, spec, job, err)
		return
	}
	if ctx.Err() != nil {
		// Shutdown, not a job failure: return it untouched.
		o.nack(ctx, job, 0)
		return
	}

	o.retryOrDeadLetter(ctx, spec, job, err)
}

// retryOrDeadLetter nacks a retryable failure with backoff, or dead-letters
// it once the attempt cap is reached.
func (o *Orchestrator) retryOrDeadLetter(ctx context.Context, spec JobSpec, job *queue.Job, cause error) {
	attempts := job.Attempts + 1
	if attempts >= o.retryCap {
		o.deadLetter(ctx, spec, job, cause)
		return
	}

	delay := o.backoff(attempts)
	o.logger.Warn().
		Err(cause).
		Str("job", spec.Key()).
		Int("attempts", attempts).
		Dur("retry_in", delay).
		Msg("job failed, retrying")
	if o.metrics != nil {
		o.metrics.JobRetries.WithLabelValues(spec.Game.String(), spec.Category).Inc()
	}
	o.nack(ctx, job, delay)
}

// runJob fetches, normalizes and commits one job's snapshot.
func (o *Orchestrator) runJob(ctx context.Context, spec JobSpec) error {
	p, err := o.providers.Get(spec.Game)
	if err != nil {
		return err
	}

	var result *normalize.Result
	switch spec.Kind {
	case KindEconomy:
		result, err = p.EconomySnapshot(ctx, spec.League, spec.Category)
	case KindLadder:
		result, err = p.BuildLadder(ctx, spec.League)
	default:
		return fmt.Errorf("unknown job kind %q", spec.Kind)
	}
	if err != nil {
		return err
	}

	for _, skip := range result.Skipped {
		o.logger.Warn().
			Err(skip.Err).
			Str("job", spec.Key()).
			Str("record", skip.RecordRef).
			Msg("record skipped")
	}
	if o.metrics != nil && len(result.Skipped) > 0 {
		o.metrics.RecordsSkipped.WithLabelValues(spec.Game.String(), p.Name()).
			Add(float64(len(result.Skipped)))
	}

	commit := &storage.SnapshotCommit{
		Leagues:    result.Leagues,
		Items:      result.Items,
		Modifiers:  result.Modifiers,
		Prices:     result.Prices,
		Characters: result.Characters,
	}
	if err := o.repo.CommitSnapshot(ctx, commit); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	if o.metrics != nil {
		o.metrics.SnapshotsIngested.WithLabelValues(spec.Game.String(), spec.Category).Inc()
		o.metrics.PricesStored.WithLabelValues(spec.Game.String()).Add(float64(len(result.Prices)))
		o.metrics.CharactersStored.WithLabelValues(spec.Game.String()).Add(float64(len(result.Characters)))
		o.metrics.LastSuccessfulIngestion.SetToCurrentTime()
	}
	o.logger.Info().
		Str("job", spec.Key()).
		Int("prices", len(result.Prices)).
		Int("characters", len(result.Characters)).
		Int("skipped", len(result.Skipped)).
		Msg("snapshot committed")
	return nil
}

// deadLetter records a terminal failure and removes the job from the queue.
func (o *Orchestrator) deadLetter(ctx context.Context, spec JobSpec, job *queue.Job, cause error) {
	o.logger.Error().
		Err(cause).
		Str("job", job.Key).
		Int("attempts", job.Attempts+1).
		Msg("job failed terminally")

	sourceName := ""
	if p, err := o.providers.Get(spec.Game); err == nil {
		sourceName = p.Name()
	}
	d := &domain.DeadLetter{
		ID:       uuid.NewString(),
		Game:     spec.Game,
		League:   spec.League,
		Category: spec.Category,
		Source:   sourceName,
		Attempts: job.Attempts + 1,
		LastErr:  cause.Error(),
		FailedAt: time.Now().UnixMilli(),
	}
	if err := o.deadLetters.Insert(ctx, d); err != nil {
		o.logger.Error().Err(err).Str("job", job.Key).Msg("dead letter insert failed")
	}
	if o.metrics != nil {
		o.metrics.DeadLetters.WithLabelValues(spec.Game.String(), spec.Category).Inc()
	}
	if err := o.jobs.Discard(ctx, job.ID); err != nil {
		o.logger.Error().Err(err).Str("job", job.Key).Msg("discard failed")
	}
}

func (o *Orchestrator) nack(ctx context.Context, job *queue.Job, delay time.Duration) {
	if err := o.jobs.Nack(ctx, job.ID, delay); err != nil {
		o.logger.Error().Err(err).Str("job", job.Key).Msg("nack failed")
	}
}

// backoff returns the jittered exponential delay before retry n.
func (o *Orchestrator) backoff(attempts int) time.Duration {
	delay := o.retryDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= o.maxDelay {
			delay = o.maxDelay
			break
		}
	}
	half := delay / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}
