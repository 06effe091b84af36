package memory

import (
	"context"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu      sync.RWMutex
	byAsset map[string]*domain.Token
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{byAsset: make(map[string]*domain.Token)}
}

// Upsert inserts or replaces a token by asset address.
func (s *TokenStore) Upsert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Asset == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokenCopy := *t
	s.byAsset[t.Asset] = &tokenCopy
	return nil
}

// Get retrieves a token by asset address. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, asset string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byAsset[asset]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
