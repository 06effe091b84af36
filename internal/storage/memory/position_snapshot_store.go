package memory

import (
	"context"
	"sort"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// PositionSnapshotStore is an in-memory implementation of
// storage.PositionSnapshotStore.
type PositionSnapshotStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.PositionSnapshot
}

// NewPositionSnapshotStore creates a new in-memory position snapshot store.
func NewPositionSnapshotStore() *PositionSnapshotStore {
	return &PositionSnapshotStore{byID: make(map[string]*domain.PositionSnapshot)}
}

// Upsert inserts or replaces a snapshot by (position, timestamp).
func (s *PositionSnapshotStore) Upsert(_ context.Context, snap *domain.PositionSnapshot) error {
	if snap == nil || snap.Position == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snap
	s.byID[snap.ID()] = &snapCopy
	return nil
}

// GetByPosition retrieves all snapshots for a position, ordered by timestamp ASC.
func (s *PositionSnapshotStore) GetByPosition(_ context.Context, position string) ([]*domain.PositionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositionSnapshot
	for _, snap := range s.byID {
		if snap.Position == position {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

var _ storage.PositionSnapshotStore = (*PositionSnapshotStore)(nil)
