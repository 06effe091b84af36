package memory

import (
	"context"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// ProtocolMetricsStore is an in-memory implementation of
// storage.ProtocolMetricsStore.
type ProtocolMetricsStore struct {
	mu      sync.RWMutex
	metrics *domain.ProtocolMetrics
}

// NewProtocolMetricsStore creates a new in-memory protocol metrics store.
func NewProtocolMetricsStore() *ProtocolMetricsStore {
	return &ProtocolMetricsStore{}
}

// Upsert replaces the singleton.
func (s *ProtocolMetricsStore) Upsert(_ context.Context, m *domain.ProtocolMetrics) error {
	if m == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metricsCopy := *m
	s.metrics = &metricsCopy
	return nil
}

// Get retrieves the singleton. Returns ErrNotFound before the first write.
func (s *ProtocolMetricsStore) Get(_ context.Context) (*domain.ProtocolMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.metrics == nil {
		return nil, storage.ErrNotFound
	}

	metricsCopy := *s.metrics
	return &metricsCopy, nil
}

var _ storage.ProtocolMetricsStore = (*ProtocolMetricsStore)(nil)
