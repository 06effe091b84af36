// Package storage defines the entity store contract the engine writes
// through: load-by-id plus upsert, each upsert independently durable once
// returned. There are no deletes and no multi-row transactions.
package storage

import (
	"context"

	"lending-risk-lab/internal/domain"
)

// TokenStore provides access to token metadata and live prices.
type TokenStore interface {
	// Upsert inserts or replaces a token by asset address.
	Upsert(ctx context.Context, t *domain.Token) error

	// Get retrieves a token by asset address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, asset string) (*domain.Token, error)
}

// OracleMappingStore provides access to the bidirectional asset<->oracle
// relation. The two sides are one logical mapping with two index views.
type OracleMappingStore interface {
	// UpsertPair writes the forward and reverse rows together. No reader may
	// observe only one side updated.
	UpsertPair(ctx context.Context, fwd *domain.AssetOracleMapping, rev *domain.OracleAssetMapping) error

	// GetByAsset retrieves the forward row. Returns ErrNotFound if not exists.
	GetByAsset(ctx context.Context, asset string) (*domain.AssetOracleMapping, error)

	// GetByOracle retrieves the reverse row. Returns ErrNotFound if not exists.
	GetByOracle(ctx context.Context, oracle string) (*domain.OracleAssetMapping, error)
}

// PriceSnapshotStore provides access to the price history stream. Identity is
// (asset, timestamp); a colliding upsert overwrites (last write wins).
type PriceSnapshotStore interface {
	Upsert(ctx context.Context, s *domain.PriceSnapshot) error

	// GetByAsset retrieves all snapshots for an asset, ordered by timestamp ASC.
	GetByAsset(ctx context.Context, asset string) ([]*domain.PriceSnapshot, error)
}

// PositionStore provides access to debt positions.
type PositionStore interface {
	Upsert(ctx context.Context, p *domain.DebtPosition) error

	// Get retrieves a position by contract address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.DebtPosition, error)
}

// CollateralStore provides access to collateral sub-ledger rows.
type CollateralStore interface {
	Upsert(ctx context.Context, c *domain.PositionCollateral) error

	// Get retrieves one row. Returns ErrNotFound if not exists.
	Get(ctx context.Context, position, reserve string) (*domain.PositionCollateral, error)

	// GetByPosition retrieves all rows for a position, ordered by reserve ASC.
	GetByPosition(ctx context.Context, position string) ([]*domain.PositionCollateral, error)
}

// DebtStore provides access to debt sub-ledger rows.
type DebtStore interface {
	Upsert(ctx context.Context, d *domain.PositionDebt) error

	// Get retrieves one tranche. Returns ErrNotFound if not exists.
	Get(ctx context.Context, position, reserve string, mode domain.RateMode) (*domain.PositionDebt, error)

	// GetByPosition retrieves all tranches for a position, ordered by
	// (reserve ASC, rate mode ASC).
	GetByPosition(ctx context.Context, position string) ([]*domain.PositionDebt, error)
}

// ReserveAggregateStore provides access to protocol-wide per-reserve totals.
type ReserveAggregateStore interface {
	Upsert(ctx context.Context, a *domain.ReserveAggregate) error

	// Get retrieves one aggregate. Returns ErrNotFound if not exists.
	Get(ctx context.Context, kind domain.ReserveAggregateKind, reserve string) (*domain.ReserveAggregate, error)
}

// PositionSnapshotStore provides access to the position risk history stream.
type PositionSnapshotStore interface {
	Upsert(ctx context.Context, s *domain.PositionSnapshot) error

	// GetByPosition retrieves all snapshots for a position, ordered by timestamp ASC.
	GetByPosition(ctx context.Context, position string) ([]*domain.PositionSnapshot, error)
}

// UserStore provides access to per-wallet activity records.
type UserStore interface {
	Upsert(ctx context.Context, u *domain.User) error

	// Get retrieves a user by wallet address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.User, error)
}

// ProtocolMetricsStore provides access to the singleton dashboard aggregate.
type ProtocolMetricsStore interface {
	Upsert(ctx context.Context, m *domain.ProtocolMetrics) error

	// Get retrieves the singleton. Returns ErrNotFound before the first write.
	Get(ctx context.Context) (*domain.ProtocolMetrics, error)
}

// AssetConfigStore provides access to per-reserve configuration.
type AssetConfigStore interface {
	Upsert(ctx context.Context, c *domain.AssetConfiguration) error

	// Get retrieves a configuration by asset address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, asset string) (*domain.AssetConfiguration, error)
}

// ConfigChangeStore provides access to configuration change history.
type ConfigChangeStore interface {
	Upsert(ctx context.Context, c *domain.AssetConfigurationChange) error

	// GetByAsset retrieves history for an asset, ordered by (block, logIndex) ASC.
	GetByAsset(ctx context.Context, asset string) ([]*domain.AssetConfigurationChange, error)
}

// TransactionStore provides access to per-event transaction records.
type TransactionStore interface {
	Upsert(ctx context.Context, t *domain.Transaction) error

	// Get retrieves a transaction by hash. Returns ErrNotFound if not exists.
	Get(ctx context.Context, hash string) (*domain.Transaction, error)
}

// OrderExecutionStore provides access to sale execution records.
type OrderExecutionStore interface {
	Upsert(ctx context.Context, e *domain.OrderExecution) error

	// GetByPosition retrieves executions against a position, ordered by timestamp ASC.
	GetByPosition(ctx context.Context, position string) ([]*domain.OrderExecution, error)
}
