package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// ReserveAggregateStore implements storage.ReserveAggregateStore using PostgreSQL.
type ReserveAggregateStore struct {
	pool *Pool
}

// NewReserveAggregateStore creates a new ReserveAggregateStore.
func NewReserveAggregateStore(pool *Pool) *ReserveAggregateStore {
	return &ReserveAggregateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReserveAggregateStore = (*ReserveAggregateStore)(nil)

// Upsert inserts or replaces an aggregate by (kind, reserve).
func (s *ReserveAggregateStore) Upsert(ctx context.Context, a *domain.ReserveAggregate) error {
	if a == nil || a.Reserve == "" || a.Kind == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO reserve_aggregates (
			kind, reserve, amount, last_updated_at
		) VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (kind, reserve) DO UPDATE SET
			amount = EXCLUDED.amount,
			last_updated_at = EXCLUDED.last_updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		string(a.Kind), a.Reserve, a.Amount.String(), a.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert reserve aggregate: %w", err)
	}
	return nil
}

// Get retrieves one aggregate. Returns ErrNotFound if not exists.
func (s *ReserveAggregateStore) Get(ctx context.Context, kind domain.ReserveAggregateKind, reserve string) (*domain.ReserveAggregate, error) {
	query := `
		SELECT kind, reserve, amount::text, last_updated_at
		FROM reserve_aggregates
		WHERE kind = $1 AND reserve = $2
	`

	var (
		a         domain.ReserveAggregate
		kindStr   string
		amountStr string
	)
	err := s.pool.QueryRow(ctx, query, string(kind), reserve).Scan(
		&kindStr, &a.Reserve, &amountStr, &a.LastUpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get reserve aggregate: %w", err)
	}

	a.Kind = domain.ReserveAggregateKind(kindStr)
	a.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse aggregate amount: %w", err)
	}
	return &a, nil
}

// ProtocolMetricsStore implements storage.ProtocolMetricsStore using PostgreSQL.
// The table holds exactly one row under a fixed key.
type ProtocolMetricsStore struct {
	pool *Pool
}

// NewProtocolMetricsStore creates a new ProtocolMetricsStore.
func NewProtocolMetricsStore(pool *Pool) *ProtocolMetricsStore {
	return &ProtocolMetricsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProtocolMetricsStore = (*ProtocolMetricsStore)(nil)

// Upsert inserts or replaces the singleton row.
func (s *ProtocolMetricsStore) Upsert(ctx context.Context, m *domain.ProtocolMetrics) error {
	if m == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO protocol_metrics (
			id, total_users, total_positions, total_active_orders,
			total_volume_usd, last_updated_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6)
		ON CONFLICT (id) DO UPDATE SET
			total_users = EXCLUDED.total_users,
			total_positions = EXCLUDED.total_positions,
			total_active_orders = EXCLUDED.total_active_orders,
			total_volume_usd = EXCLUDED.total_volume_usd,
			last_updated_at = EXCLUDED.last_updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		domain.ProtocolMetricsID,
		m.TotalUsers,
		m.TotalPositions,
		m.TotalActiveOrders,
		m.TotalVolumeUSD.String(),
		m.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert protocol metrics: %w", err)
	}
	return nil
}

// Get retrieves the singleton. Returns ErrNotFound before the first write.
func (s *ProtocolMetricsStore) Get(ctx context.Context) (*domain.ProtocolMetrics, error) {
	query := `
		SELECT total_users, total_positions, total_active_orders,
		       total_volume_usd::text, last_updated_at
		FROM protocol_metrics
		WHERE id = $1
	`

	var (
		m         domain.ProtocolMetrics
		volumeStr string
	)
	err := s.pool.QueryRow(ctx, query, domain.ProtocolMetricsID).Scan(
		&m.TotalUsers,
		&m.TotalPositions,
		&m.TotalActiveOrders,
		&volumeStr,
		&m.LastUpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get protocol metrics: %w", err)
	}

	m.TotalVolumeUSD, err = decimal.NewFromString(volumeStr)
	if err != nil {
		return nil, fmt.Errorf("parse protocol volume: %w", err)
	}
	return &m, nil
}
