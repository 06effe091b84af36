package memory

import (
	"context"
	"sort"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// CollateralStore is an in-memory implementation of storage.CollateralStore.
type CollateralStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.PositionCollateral
}

// NewCollateralStore creates a new in-memory collateral store.
func NewCollateralStore() *CollateralStore {
	return &CollateralStore{byID: make(map[string]*domain.PositionCollateral)}
}

// Upsert inserts or replaces a row by (position, reserve).
func (s *CollateralStore) Upsert(_ context.Context, c *domain.PositionCollateral) error {
	if c == nil || c.Position == "" || c.Reserve == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rowCopy := *c
	s.byID[c.ID()] = &rowCopy
	return nil
}

// Get retrieves one row. Returns ErrNotFound if not exists.
func (s *CollateralStore) Get(_ context.Context, position, reserve string) (*domain.PositionCollateral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, exists := s.byID[position+"-"+reserve]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rowCopy := *row
	return &rowCopy, nil
}

// GetByPosition retrieves all rows for a position, ordered by reserve ASC.
func (s *CollateralStore) GetByPosition(_ context.Context, position string) ([]*domain.PositionCollateral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositionCollateral
	for _, row := range s.byID {
		if row.Position == position {
			rowCopy := *row
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Reserve < result[j].Reserve
	})
	return result, nil
}

var _ storage.CollateralStore = (*CollateralStore)(nil)
