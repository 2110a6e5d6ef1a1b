package memory

import (
	"context"
	"sync"
	"time"

	"pathofmirrors/internal/storage"
)

// LockStore is an in-memory implementation of storage.LockStore.
// Expired locks are reclaimed on the next acquire attempt.
type LockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> expiry
	now   func() time.Time
}

// NewLockStore creates an empty in-memory lock store.
func NewLockStore() *LockStore {
	return &LockStore{
		locks: make(map[string]time.Time),
		now:   time.Now,
	}
}

// TryAcquire takes the lock for key unless another holder has it and its
// TTL has not lapsed.
func (s *LockStore) TryAcquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, held := s.locks[key]; held && expiry.After(now) {
		return false, nil
	}
	s.locks[key] = now.Add(ttl)
	return true, nil
}

// Release drops the lock for key. Releasing an unheld key is a no-op.
func (s *LockStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, key)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.LockStore = (*LockStore)(nil)
