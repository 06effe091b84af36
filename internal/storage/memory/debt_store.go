package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// DebtStore is an in-memory implementation of storage.DebtStore.
type DebtStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.PositionDebt
}

// NewDebtStore creates a new in-memory debt store.
func NewDebtStore() *DebtStore {
	return &DebtStore{byID: make(map[string]*domain.PositionDebt)}
}

// Upsert inserts or replaces a tranche by (position, reserve, rate mode).
func (s *DebtStore) Upsert(_ context.Context, d *domain.PositionDebt) error {
	if d == nil || d.Position == "" || d.Reserve == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rowCopy := *d
	s.byID[d.ID()] = &rowCopy
	return nil
}

// Get retrieves one tranche. Returns ErrNotFound if not exists.
func (s *DebtStore) Get(_ context.Context, position, reserve string, mode domain.RateMode) (*domain.PositionDebt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, exists := s.byID[position+"-"+reserve+"-"+strconv.Itoa(int(mode))]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rowCopy := *row
	return &rowCopy, nil
}

// GetByPosition retrieves all tranches for a position, ordered by
// (reserve ASC, rate mode ASC).
func (s *DebtStore) GetByPosition(_ context.Context, position string) ([]*domain.PositionDebt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositionDebt
	for _, row := range s.byID {
		if row.Position == position {
			rowCopy := *row
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Reserve != result[j].Reserve {
			return result[i].Reserve < result[j].Reserve
		}
		return result[i].RateMode < result[j].RateMode
	})
	return result, nil
}

var _ storage.DebtStore = (*DebtStore)(nil)
