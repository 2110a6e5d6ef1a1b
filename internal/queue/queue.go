// Package queue provides the ingestion work queue. Jobs are durable units
// of fetch work; workers pull them, run them, and either ack on success or
// nack with a delay for retryable failures.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmpty is returned by Dequeue when no job is ready.
var ErrEmpty = errors.New("queue: no jobs available")

// Job is one unit of ingestion work. Key identifies the logical job so the
// same fetch is never queued twice concurrently; Payload carries the typed
// job spec as JSON.
type Job struct {
	ID          uuid.UUID
	Key         string
	Payload     []byte
	Attempts    int
	AvailableAt time.Time
}

// NewJob creates a job available immediately.
func NewJob(key string, payload []byte) *Job {
	return &Job{
		ID:          uuid.New(),
		Key:         key,
		Payload:     payload,
		AvailableAt: time.Now(),
	}
}

// Queue hands out jobs to at most one worker at a time. A dequeued job stays
// invisible until acked or nacked; a crashed worker's job reappears after
// the queue's visibility timeout.
type Queue interface {
	// Enqueue adds a job. A pending or in-flight job with the same key is
	// left alone and no duplicate is added.
	Enqueue(ctx context.Context, job *Job) error
	// Dequeue returns the next ready job, or ErrEmpty.
	Dequeue(ctx context.Context) (*Job, error)
	// Ack removes a completed job.
	Ack(ctx context.Context, id uuid.UUID) error
	// Nack returns a failed job to the queue, delayed by retryAfter, with
	// its attempt count incremented.
	Nack(ctx context.Context, id uuid.UUID, retryAfter time.Duration) error
	// Discard removes a job that will not be retried.
	Discard(ctx context.Context, id uuid.UUID) error
}
