package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// AssetConfigStore implements storage.AssetConfigStore using PostgreSQL.
type AssetConfigStore struct {
	pool *Pool
}

// NewAssetConfigStore creates a new AssetConfigStore.
func NewAssetConfigStore(pool *Pool) *AssetConfigStore {
	return &AssetConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssetConfigStore = (*AssetConfigStore)(nil)

// Upsert inserts or replaces a configuration by asset address.
func (s *AssetConfigStore) Upsert(ctx context.Context, c *domain.AssetConfiguration) error {
	if c == nil || c.Asset == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO asset_configurations (
			asset, symbol, ltv, liquidation_threshold, liquidation_bonus,
			atoken_address, stable_debt_token, variable_debt_token, interest_rate_strategy,
			borrowing_enabled, stable_rate_borrowing_enabled, flash_loan_enabled,
			borrowable_in_isolation, is_active, is_frozen, is_paused,
			borrow_cap, supply_cap, debt_ceiling, reserve_factor,
			liquidation_protocol_fee, unbacked_mint_cap, emode_category,
			initialized_at, last_updated_at
		) VALUES (
			$1, $2, $3::numeric, $4::numeric, $5::numeric,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		ON CONFLICT (asset) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			ltv = EXCLUDED.ltv,
			liquidation_threshold = EXCLUDED.liquidation_threshold,
			liquidation_bonus = EXCLUDED.liquidation_bonus,
			atoken_address = EXCLUDED.atoken_address,
			stable_debt_token = EXCLUDED.stable_debt_token,
			variable_debt_token = EXCLUDED.variable_debt_token,
			interest_rate_strategy = EXCLUDED.interest_rate_strategy,
			borrowing_enabled = EXCLUDED.borrowing_enabled,
			stable_rate_borrowing_enabled = EXCLUDED.stable_rate_borrowing_enabled,
			flash_loan_enabled = EXCLUDED.flash_loan_enabled,
			borrowable_in_isolation = EXCLUDED.borrowable_in_isolation,
			is_active = EXCLUDED.is_active,
			is_frozen = EXCLUDED.is_frozen,
			is_paused = EXCLUDED.is_paused,
			borrow_cap = EXCLUDED.borrow_cap,
			supply_cap = EXCLUDED.supply_cap,
			debt_ceiling = EXCLUDED.debt_ceiling,
			reserve_factor = EXCLUDED.reserve_factor,
			liquidation_protocol_fee = EXCLUDED.liquidation_protocol_fee,
			unbacked_mint_cap = EXCLUDED.unbacked_mint_cap,
			emode_category = EXCLUDED.emode_category,
			last_updated_at = EXCLUDED.last_updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		c.Asset, c.Symbol,
		c.LTV.String(), c.LiquidationThreshold.String(), c.LiquidationBonus.String(),
		c.ATokenAddress, c.StableDebtToken, c.VariableDebtToken, c.InterestRateStrategy,
		c.BorrowingEnabled, c.StableRateBorrowingEnabled, c.FlashLoanEnabled,
		c.BorrowableInIsolation, c.IsActive, c.IsFrozen, c.IsPaused,
		c.BorrowCap, c.SupplyCap, c.DebtCeiling, c.ReserveFactor,
		c.LiquidationProtocolFee, c.UnbackedMintCap, c.EModeCategory,
		c.InitializedAt, c.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert asset configuration: %w", err)
	}
	return nil
}

// Get retrieves a configuration by asset address. Returns ErrNotFound if not exists.
func (s *AssetConfigStore) Get(ctx context.Context, asset string) (*domain.AssetConfiguration, error) {
	query := `
		SELECT asset, symbol, ltv::text, liquidation_threshold::text, liquidation_bonus::text,
		       atoken_address, stable_debt_token, variable_debt_token, interest_rate_strategy,
		       borrowing_enabled, stable_rate_borrowing_enabled, flash_loan_enabled,
		       borrowable_in_isolation, is_active, is_frozen, is_paused,
		       borrow_cap, supply_cap, debt_ceiling, reserve_factor,
		       liquidation_protocol_fee, unbacked_mint_cap, emode_category,
		       initialized_at, last_updated_at
		FROM asset_configurations
		WHERE asset = $1
	`

	row := s.pool.QueryRow(ctx, query, asset)
	c, err := scanAssetConfiguration(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset configuration: %w", err)
	}
	return c, nil
}

// scanAssetConfiguration scans a single row into AssetConfiguration.
func scanAssetConfiguration(row pgx.Row) (*domain.AssetConfiguration, error) {
	var (
		c        domain.AssetConfiguration
		decimals [3]string
	)

	err := row.Scan(
		&c.Asset, &c.Symbol, &decimals[0], &decimals[1], &decimals[2],
		&c.ATokenAddress, &c.StableDebtToken, &c.VariableDebtToken, &c.InterestRateStrategy,
		&c.BorrowingEnabled, &c.StableRateBorrowingEnabled, &c.FlashLoanEnabled,
		&c.BorrowableInIsolation, &c.IsActive, &c.IsFrozen, &c.IsPaused,
		&c.BorrowCap, &c.SupplyCap, &c.DebtCeiling, &c.ReserveFactor,
		&c.LiquidationProtocolFee, &c.UnbackedMintCap, &c.EModeCategory,
		&c.InitializedAt, &c.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fields := []*decimal.Decimal{&c.LTV, &c.LiquidationThreshold, &c.LiquidationBonus}
	for i, field := range fields {
		*field, err = decimal.NewFromString(decimals[i])
		if err != nil {
			return nil, fmt.Errorf("parse configuration ratio: %w", err)
		}
	}

	return &c, nil
}
