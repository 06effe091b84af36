package memory

import (
	"context"
	"sort"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// ConfigChangeStore is an in-memory implementation of storage.ConfigChangeStore.
type ConfigChangeStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.AssetConfigurationChange
}

// NewConfigChangeStore creates a new in-memory configuration history store.
func NewConfigChangeStore() *ConfigChangeStore {
	return &ConfigChangeStore{byID: make(map[string]*domain.AssetConfigurationChange)}
}

// Upsert inserts or replaces a history row by (asset, block, logIndex).
func (s *ConfigChangeStore) Upsert(_ context.Context, c *domain.AssetConfigurationChange) error {
	if c == nil || c.Asset == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rowCopy := *c
	s.byID[c.ID()] = &rowCopy
	return nil
}

// GetByAsset retrieves history for an asset, ordered by (block, logIndex) ASC.
func (s *ConfigChangeStore) GetByAsset(_ context.Context, asset string) ([]*domain.AssetConfigurationChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AssetConfigurationChange
	for _, row := range s.byID {
		if row.Asset == asset {
			rowCopy := *row
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].LogIndex < result[j].LogIndex
	})
	return result, nil
}

var _ storage.ConfigChangeStore = (*ConfigChangeStore)(nil)
