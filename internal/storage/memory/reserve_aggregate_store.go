package memory

import (
	"context"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// ReserveAggregateStore is an in-memory implementation of
// storage.ReserveAggregateStore.
type ReserveAggregateStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.ReserveAggregate
}

// NewReserveAggregateStore creates a new in-memory reserve aggregate store.
func NewReserveAggregateStore() *ReserveAggregateStore {
	return &ReserveAggregateStore{byID: make(map[string]*domain.ReserveAggregate)}
}

// Upsert inserts or replaces an aggregate by (kind, reserve).
func (s *ReserveAggregateStore) Upsert(_ context.Context, a *domain.ReserveAggregate) error {
	if a == nil || a.Reserve == "" || a.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	aggCopy := *a
	s.byID[a.ID()] = &aggCopy
	return nil
}

// Get retrieves one aggregate. Returns ErrNotFound if not exists.
func (s *ReserveAggregateStore) Get(_ context.Context, kind domain.ReserveAggregateKind, reserve string) (*domain.ReserveAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := (&domain.ReserveAggregate{Kind: kind, Reserve: reserve}).ID()
	a, exists := s.byID[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	aggCopy := *a
	return &aggCopy, nil
}

var _ storage.ReserveAggregateStore = (*ReserveAggregateStore)(nil)
