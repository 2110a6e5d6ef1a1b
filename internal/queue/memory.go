package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process queue for tests and single-node runs. Jobs are
// ordered by availability time; in-flight jobs are invisible until acked
// or nacked.
type Memory struct {
	mu       sync.Mutex
	pending  []*Job
	inflight map[uuid.UUID]*Job
	keys     map[string]bool
	now      func() time.Time
}

var _ Queue = (*Memory)(nil)

// NewMemory creates an empty in-memory queue.
func NewMemory() *Memory {
	return &Memory{
		inflight: make(map[uuid.UUID]*Job),
		keys:     make(map[string]bool),
		now:      time.Now,
	}
}

func (q *Memory) Enqueue(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.keys[job.Key] {
		return nil
	}
	q.keys[job.Key] = true

	copied := *job
	q.pending = append(q.pending, &copied)
	q.sortLocked()
	return nil
}

func (q *Memory) Dequeue(_ context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for i, job := range q.pending {
		if job.AvailableAt.After(now) {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		q.inflight[job.ID] = job

		copied := *job
		return &copied, nil
	}
	return nil, ErrEmpty
}

func (q *Memory) Ack(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(id)
}

func (q *Memory) Nack(_ context.Context, id uuid.UUID, retryAfter time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.inflight[id]
	if !ok {
		return nil
	}
	delete(q.inflight, id)

	job.Attempts++
	job.AvailableAt = q.now().Add(retryAfter)
	q.pending = append(q.pending, job)
	q.sortLocked()
	return nil
}

func (q *Memory) Discard(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(id)
}

// Len returns the number of pending and in-flight jobs.
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.inflight)
}

func (q *Memory) removeLocked(id uuid.UUID) error {
	if job, ok := q.inflight[id]; ok {
		delete(q.inflight, id)
		delete(q.keys, job.Key)
		return nil
	}
	for i, job := range q.pending {
		if job.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			delete(q.keys, job.Key)
			return nil
		}
	}
	return nil
}

func (q *Memory) sortLocked() {
	sort.SliceStable(q.pending, func(i, j int) bool {
		return q.pending[i].AvailableAt.Before(q.pending[j].AvailableAt)
	})
}
