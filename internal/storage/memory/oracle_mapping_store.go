package memory

import (
	"context"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// OracleMappingStore is an in-memory implementation of
// storage.OracleMappingStore. Both index views live behind one mutex so a
// reader can never observe only one side of a pair update.
type OracleMappingStore struct {
	mu       sync.RWMutex
	byAsset  map[string]*domain.AssetOracleMapping
	byOracle map[string]*domain.OracleAssetMapping
}

// NewOracleMappingStore creates a new in-memory oracle mapping store.
func NewOracleMappingStore() *OracleMappingStore {
	return &OracleMappingStore{
		byAsset:  make(map[string]*domain.AssetOracleMapping),
		byOracle: make(map[string]*domain.OracleAssetMapping),
	}
}

// UpsertPair writes the forward and reverse rows together.
func (s *OracleMappingStore) UpsertPair(_ context.Context, fwd *domain.AssetOracleMapping, rev *domain.OracleAssetMapping) error {
	if fwd == nil || rev == nil || fwd.Asset == "" || rev.Oracle == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fwdCopy := *fwd
	revCopy := *rev
	s.byAsset[fwd.Asset] = &fwdCopy
	s.byOracle[rev.Oracle] = &revCopy
	return nil
}

// GetByAsset retrieves the forward row. Returns ErrNotFound if not exists.
func (s *OracleMappingStore) GetByAsset(_ context.Context, asset string) (*domain.AssetOracleMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byAsset[asset]
	if !exists {
		return nil, storage.ErrNotFound
	}

	mCopy := *m
	return &mCopy, nil
}

// GetByOracle retrieves the reverse row. Returns ErrNotFound if not exists.
func (s *OracleMappingStore) GetByOracle(_ context.Context, oracle string) (*domain.OracleAssetMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byOracle[oracle]
	if !exists {
		return nil, storage.ErrNotFound
	}

	mCopy := *m
	return &mCopy, nil
}

var _ storage.OracleMappingStore = (*OracleMappingStore)(nil)
