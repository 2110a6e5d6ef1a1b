package memory

import (
	"context"
	"sort"
	"sync"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/storage"
)

// DeadLetterStore is an in-memory implementation of storage.DeadLetterStore.
type DeadLetterStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DeadLetter // keyed by id
}

// NewDeadLetterStore creates an empty in-memory dead letter store.
func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{
		data: make(map[string]*domain.DeadLetter),
	}
}

// Insert records a terminal failure. Returns ErrDuplicateKey if the ID exists.
func (s *DeadLetterStore) Insert(_ context.Context, d *domain.DeadLetter) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.ID]; exists {
		return storage.ErrDuplicateKey
	}
	letterCopy := *d
	s.data[d.ID] = &letterCopy
	return nil
}

// List retrieves dead letters for a game, newest first.
func (s *DeadLetterStore) List(_ context.Context, game domain.Game) ([]*domain.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DeadLetter
	for _, d := range s.data {
		if d.Game == game {
			letterCopy := *d
			result = append(result, &letterCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FailedAt != result[j].FailedAt {
			return result[i].FailedAt > result[j].FailedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.DeadLetterStore = (*DeadLetterStore)(nil)
