package postgres

import (
	"context"
	"fmt"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// OracleMappingStore implements storage.OracleMappingStore using PostgreSQL.
// The two mapping halves live in separate tables and are written inside one
// transaction so readers never observe a half-updated pair.
type OracleMappingStore struct {
	pool *Pool
}

// NewOracleMappingStore creates a new OracleMappingStore.
func NewOracleMappingStore(pool *Pool) *OracleMappingStore {
	return &OracleMappingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OracleMappingStore = (*OracleMappingStore)(nil)

// UpsertPair writes the forward and reverse rows atomically.
func (s *OracleMappingStore) UpsertPair(ctx context.Context, fwd *domain.AssetOracleMapping, rev *domain.OracleAssetMapping) error {
	if fwd == nil || fwd.Asset == "" || rev == nil || rev.Oracle == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mapping upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO asset_oracle_mappings (
			asset, oracle, is_active, created_at, last_updated_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (asset) DO UPDATE SET
			oracle = EXCLUDED.oracle,
			is_active = EXCLUDED.is_active,
			last_updated_at = EXCLUDED.last_updated_at
	`, fwd.Asset, fwd.Oracle, fwd.IsActive, fwd.CreatedAt, fwd.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert forward mapping: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO oracle_asset_mappings (
			oracle, asset, is_active, created_at, last_updated_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (oracle) DO UPDATE SET
			asset = EXCLUDED.asset,
			is_active = EXCLUDED.is_active,
			last_updated_at = EXCLUDED.last_updated_at
	`, rev.Oracle, rev.Asset, rev.IsActive, rev.CreatedAt, rev.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert reverse mapping: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mapping upsert: %w", err)
	}
	return nil
}

// GetByAsset retrieves the forward row. Returns ErrNotFound if not exists.
func (s *OracleMappingStore) GetByAsset(ctx context.Context, asset string) (*domain.AssetOracleMapping, error) {
	query := `
		SELECT asset, oracle, is_active, created_at, last_updated_at
		FROM asset_oracle_mappings
		WHERE asset = $1
	`

	var m domain.AssetOracleMapping
	err := s.pool.QueryRow(ctx, query, asset).Scan(
		&m.Asset, &m.Oracle, &m.IsActive, &m.CreatedAt, &m.LastUpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get forward mapping: %w", err)
	}
	return &m, nil
}

// GetByOracle retrieves the reverse row. Returns ErrNotFound if not exists.
func (s *OracleMappingStore) GetByOracle(ctx context.Context, oracle string) (*domain.OracleAssetMapping, error) {
	query := `
		SELECT oracle, asset, is_active, created_at, last_updated_at
		FROM oracle_asset_mappings
		WHERE oracle = $1
	`

	var m domain.OracleAssetMapping
	err := s.pool.QueryRow(ctx, query, oracle).Scan(
		&m.Oracle, &m.Asset, &m.IsActive, &m.CreatedAt, &m.LastUpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get reverse mapping: %w", err)
	}
	return &m, nil
}
