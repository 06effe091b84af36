package memory

import (
	"context"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu        sync.RWMutex
	byAddress map[string]*domain.DebtPosition
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{byAddress: make(map[string]*domain.DebtPosition)}
}

// Upsert inserts or replaces a position by contract address.
func (s *PositionStore) Upsert(_ context.Context, p *domain.DebtPosition) error {
	if p == nil || p.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	posCopy := *p
	s.byAddress[p.Address] = &posCopy
	return nil
}

// Get retrieves a position by contract address. Returns ErrNotFound if not exists.
func (s *PositionStore) Get(_ context.Context, address string) (*domain.DebtPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.byAddress[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	posCopy := *p
	return &posCopy, nil
}

var _ storage.PositionStore = (*PositionStore)(nil)
