package postgres

import (
	"context"
	"fmt"
	"time"

	"pathofmirrors/internal/storage"
)

// LockStore implements storage.LockStore on a Postgres table. A lock is one
// row keyed by job key; an expired row is taken over in the same statement,
// so a crashed worker's lock frees itself after its TTL.
type LockStore struct {
	pool *Pool
}

// NewLockStore creates a new LockStore.
func NewLockStore(pool *Pool) *LockStore {
	return &LockStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LockStore = (*LockStore)(nil)

// TryAcquire takes the lock for key unless another holder has it and its
// TTL has not lapsed.
func (s *LockStore) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO ingest_locks (key, locked_until)
		VALUES ($1, now() + $2)
		ON CONFLICT (key) DO UPDATE SET locked_until = now() + $2
		WHERE ingest_locks.locked_until <= now()
	`

	tag, err := s.pool.Exec(ctx, query, key, ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Release drops the lock for key. Releasing an unheld key is a no-op.
func (s *LockStore) Release(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM ingest_locks WHERE key = $1`, key); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
