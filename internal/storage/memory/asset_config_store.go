package memory

import (
	"context"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// AssetConfigStore is an in-memory implementation of storage.AssetConfigStore.
type AssetConfigStore struct {
	mu      sync.RWMutex
	byAsset map[string]*domain.AssetConfiguration
}

// NewAssetConfigStore creates a new in-memory asset configuration store.
func NewAssetConfigStore() *AssetConfigStore {
	return &AssetConfigStore{byAsset: make(map[string]*domain.AssetConfiguration)}
}

// Upsert inserts or replaces a configuration by asset address.
func (s *AssetConfigStore) Upsert(_ context.Context, c *domain.AssetConfiguration) error {
	if c == nil || c.Asset == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfgCopy := *c
	s.byAsset[c.Asset] = &cfgCopy
	return nil
}

// Get retrieves a configuration by asset address. Returns ErrNotFound if not exists.
func (s *AssetConfigStore) Get(_ context.Context, asset string) (*domain.AssetConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.byAsset[asset]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cfgCopy := *c
	return &cfgCopy, nil
}

var _ storage.AssetConfigStore = (*AssetConfigStore)(nil)
