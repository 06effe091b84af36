package memory

import (
	"context"
	"sort"
	"sync"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu     sync.RWMutex
	byHash map[string]*domain.Transaction
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{byHash: make(map[string]*domain.Transaction)}
}

// Upsert inserts or replaces a transaction by hash.
func (s *TransactionStore) Upsert(_ context.Context, t *domain.Transaction) error {
	if t == nil || t.Hash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txCopy := *t
	s.byHash[t.Hash] = &txCopy
	return nil
}

// Get retrieves a transaction by hash. Returns ErrNotFound if not exists.
func (s *TransactionStore) Get(_ context.Context, hash string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byHash[hash]
	if !exists {
		return nil, storage.ErrNotFound
	}

	txCopy := *t
	return &txCopy, nil
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

// OrderExecutionStore is an in-memory implementation of
// storage.OrderExecutionStore.
type OrderExecutionStore struct {
	mu     sync.RWMutex
	byHash map[string]*domain.OrderExecution
}

// NewOrderExecutionStore creates a new in-memory order execution store.
func NewOrderExecutionStore() *OrderExecutionStore {
	return &OrderExecutionStore{byHash: make(map[string]*domain.OrderExecution)}
}

// Upsert inserts or replaces an execution by transaction hash.
func (s *OrderExecutionStore) Upsert(_ context.Context, e *domain.OrderExecution) error {
	if e == nil || e.TxHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	execCopy := *e
	s.byHash[e.TxHash] = &execCopy
	return nil
}

// GetByPosition retrieves executions against a position, ordered by timestamp ASC.
func (s *OrderExecutionStore) GetByPosition(_ context.Context, position string) ([]*domain.OrderExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OrderExecution
	for _, e := range s.byHash {
		if e.Position == position {
			execCopy := *e
			result = append(result, &execCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

var _ storage.OrderExecutionStore = (*OrderExecutionStore)(nil)
