package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pathofmirrors/internal/queue"
)

// DefaultVisibilityTimeout bounds how long a dequeued job stays invisible.
// A worker that crashed mid-job loses the row back to the queue after this.
const DefaultVisibilityTimeout = 10 * time.Minute

// JobQueue implements queue.Queue on a Postgres table. Dequeue uses
// FOR UPDATE SKIP LOCKED so concurrent workers never hand out the same job.
type JobQueue struct {
	pool       *Pool
	visibility time.Duration
}

// NewJobQueue creates a Postgres-backed job queue. A non-positive
// visibility takes DefaultVisibilityTimeout.
func NewJobQueue(pool *Pool, visibility time.Duration) *JobQueue {
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	return &JobQueue{pool: pool, visibility: visibility}
}

// Compile-time interface check.
var _ queue.Queue = (*JobQueue)(nil)

// Enqueue adds a job. A pending or in-flight job with the same key is left
// alone and no duplicate is added.
func (q *JobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	query := `
		INSERT INTO ingest_jobs (id, key, payload, attempts, available_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO NOTHING
	`

	_, err := q.pool.Exec(ctx, query, job.ID, job.Key, job.Payload, job.Attempts, job.AvailableAt)
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.Key, err)
	}
	return nil
}

// Dequeue claims the next ready job, or a running job whose worker went
// silent past the visibility timeout. Returns queue.ErrEmpty when nothing
// is ready.
func (q *JobQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	query := `
		UPDATE ingest_jobs SET state = 'running', started_at = now()
		WHERE id = (
			SELECT id FROM ingest_jobs
			WHERE (state = 'pending' AND available_at <= now())
			   OR (state = 'running' AND started_at < now() - $1)
			ORDER BY available_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, key, payload, attempts, available_at
	`

	var job queue.Job
	err := q.pool.QueryRow(ctx, query, q.visibility).Scan(
		&job.ID,
		&job.Key,
		&job.Payload,
		&job.Attempts,
		&job.AvailableAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, queue.ErrEmpty
		}
		return nil, fmt.Errorf("dequeue job: %w", err)
	}
	return &job, nil
}

// Ack removes a completed job.
func (q *JobQueue) Ack(ctx context.Context, id uuid.UUID) error {
	return q.delete(ctx, id)
}

// Discard removes a job that will not be retried.
func (q *JobQueue) Discard(ctx context.Context, id uuid.UUID) error {
	return q.delete(ctx, id)
}

// Nack returns a failed job to the queue, delayed by retryAfter, with its
// attempt count incremented.
func (q *JobQueue) Nack(ctx context.Context, id uuid.UUID, retryAfter time.Duration) error {
	query := `
		UPDATE ingest_jobs
		SET state = 'pending', attempts = attempts + 1, available_at = now() + $2, started_at = NULL
		WHERE id = $1
	`

	if _, err := q.pool.Exec(ctx, query, id, retryAfter); err != nil {
		return fmt.Errorf("nack job %s: %w", id, err)
	}
	return nil
}

func (q *JobQueue) delete(ctx context.Context, id uuid.UUID) error {
	if _, err := q.pool.Exec(ctx, `DELETE FROM ingest_jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}
