// Package reserves keeps AssetConfiguration rows current with pool
// configurator events and records an append-only change history. The
// configuration feeds dashboards only; position liquidation thresholds are
// fixed at position creation and never re-synced from here.
package reserves

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/feed"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/storage"
)

// Manager applies configurator events to per-reserve configuration.
type Manager struct {
	configs  storage.AssetConfigStore
	history  storage.ConfigChangeStore
	registry *registry.Registry
}

// New creates a reserve configuration manager.
func New(configs storage.AssetConfigStore, history storage.ConfigChangeStore, reg *registry.Registry) *Manager {
	return &Manager{configs: configs, history: history, registry: reg}
}

// bpsToRatio converts a basis-point value to a 0-1 decimal.
func bpsToRatio(bps int64) decimal.Decimal {
	return decimal.NewFromInt(bps).Shift(-4)
}

// Apply mutates the asset's configuration per the event and appends one
// history row. Unknown flag and cap names are recorded in history but change
// nothing.
func (m *Manager) Apply(ctx context.Context, cfg *feed.ReserveConfig, blockNumber, logIndex, timestamp int64, txHash string) error {
	asset := feed.AddrKey(cfg.Asset)

	row, err := m.configs.Get(ctx, asset)
	if errors.Is(err, storage.ErrNotFound) {
		token, terr := m.registry.GetOrCreateToken(ctx, asset)
		if terr != nil {
			return terr
		}
		row = &domain.AssetConfiguration{
			Asset:            asset,
			Symbol:           token.Symbol,
			LiquidationBonus: decimal.NewFromInt(1),
			InitializedAt:    timestamp,
		}
	} else if err != nil {
		return fmt.Errorf("load asset configuration %s: %w", asset, err)
	}

	eventType, detail := m.mutate(row, cfg)

	row.LastUpdatedAt = timestamp
	if err := m.configs.Upsert(ctx, row); err != nil {
		return fmt.Errorf("save asset configuration %s: %w", asset, err)
	}

	change := &domain.AssetConfigurationChange{
		Asset:       asset,
		EventType:   eventType,
		Detail:      detail,
		BlockNumber: blockNumber,
		LogIndex:    logIndex,
		Timestamp:   timestamp,
		TxHash:      txHash,
	}
	if err := m.history.Upsert(ctx, change); err != nil {
		return fmt.Errorf("append configuration history %s: %w", asset, err)
	}
	return nil
}

// mutate applies the sub-event to the row and returns the history labels.
func (m *Manager) mutate(row *domain.AssetConfiguration, cfg *feed.ReserveConfig) (eventType, detail string) {
	switch cfg.Kind {
	case feed.ConfigReserveInitialized:
		row.ATokenAddress = feed.AddrKey(cfg.AToken)
		row.StableDebtToken = feed.AddrKey(cfg.StableDebtToken)
		row.VariableDebtToken = feed.AddrKey(cfg.VariableDebtToken)
		row.InterestRateStrategy = feed.AddrKey(cfg.InterestRateStrategy)
		return "ReserveInitialized", fmt.Sprintf("aToken=%s", row.ATokenAddress)

	case feed.ConfigCollateralChanged:
		row.LTV = bpsToRatio(cfg.LTVBps)
		row.LiquidationThreshold = bpsToRatio(cfg.LiquidationThresholdBps)
		row.LiquidationBonus = bpsToRatio(cfg.LiquidationBonusBps)
		return "CollateralConfigurationChanged", fmt.Sprintf(
			"ltv=%s threshold=%s bonus=%s", row.LTV, row.LiquidationThreshold, row.LiquidationBonus)

	case feed.ConfigFlagChanged:
		switch cfg.Flag {
		case feed.FlagBorrowing:
			row.BorrowingEnabled = cfg.Enabled
		case feed.FlagStableRateBorrowing:
			row.StableRateBorrowingEnabled = cfg.Enabled
		case feed.FlagFlashLoaning:
			row.FlashLoanEnabled = cfg.Enabled
		case feed.FlagActive:
			row.IsActive = cfg.Enabled
		case feed.FlagFrozen:
			row.IsFrozen = cfg.Enabled
		case feed.FlagPaused:
			row.IsPaused = cfg.Enabled
		case feed.FlagBorrowableInIsolation:
			row.BorrowableInIsolation = cfg.Enabled
		}
		return "FlagChanged", fmt.Sprintf("flag=%s enabled=%t", cfg.Flag, cfg.Enabled)

	case feed.ConfigCapChanged:
		switch cfg.Cap {
		case feed.CapBorrow:
			row.BorrowCap = cfg.Value
		case feed.CapSupply:
			row.SupplyCap = cfg.Value
		case feed.CapDebtCeiling:
			row.DebtCeiling = cfg.Value
		case feed.CapReserveFactor:
			row.ReserveFactor = cfg.Value
		case feed.CapLiquidationProtocolFee:
			row.LiquidationProtocolFee = cfg.Value
		case feed.CapUnbackedMintCap:
			row.UnbackedMintCap = cfg.Value
		}
		return "CapChanged", fmt.Sprintf("cap=%s value=%d", cfg.Cap, cfg.Value)

	case feed.ConfigEModeChanged:
		row.EModeCategory = cfg.EModeCategory
		return "EModeCategoryChanged", fmt.Sprintf("category=%d", cfg.EModeCategory)

	default:
		return string(cfg.Kind), ""
	}
}
