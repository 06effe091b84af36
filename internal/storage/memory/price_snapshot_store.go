package memory

import (
	"context"
	"sort"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// PriceSnapshotStore is an in-memory implementation of
// storage.PriceSnapshotStore. Keyed by (asset, timestamp); a colliding upsert
// overwrites the earlier snapshot.
type PriceSnapshotStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.PriceSnapshot
}

// NewPriceSnapshotStore creates a new in-memory price snapshot store.
func NewPriceSnapshotStore() *PriceSnapshotStore {
	return &PriceSnapshotStore{byID: make(map[string]*domain.PriceSnapshot)}
}

// Upsert inserts or replaces a snapshot by (asset, timestamp).
func (s *PriceSnapshotStore) Upsert(_ context.Context, snap *domain.PriceSnapshot) error {
	if snap == nil || snap.Asset == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snap
	s.byID[snap.ID()] = &snapCopy
	return nil
}

// GetByAsset retrieves all snapshots for an asset, ordered by timestamp ASC.
func (s *PriceSnapshotStore) GetByAsset(_ context.Context, asset string) ([]*domain.PriceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSnapshot
	for _, snap := range s.byID {
		if snap.Asset == asset {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

var _ storage.PriceSnapshotStore = (*PriceSnapshotStore)(nil)
