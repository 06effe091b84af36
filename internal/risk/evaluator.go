// Package risk derives health factors, risk bands, and liquidation estimates
// for debt positions. Position USD totals are always recomputed from the
// sub-ledger rows at current prices, never carried forward incrementally.
package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/storage"
)

// Health factor band boundaries.
var (
	hfCritical = decimal.RequireFromString("1.1")
	hfHigh     = decimal.RequireFromString("1.3")
	hfMedium   = decimal.RequireFromString("2.0")
)

// Time-to-liquidation model constants. The drain rate is an assumed linear
// health factor decay per second; the estimate is suppressed when the
// position is already near the boundary or the horizon exceeds a year.
var (
	ttlMinHealthFactor = decimal.RequireFromString("1.05")
	ttlDrainPerSecond  = decimal.RequireFromString("0.000000158")
	ttlHorizonSeconds  = int64(31536000)
)

// Evaluator recomputes a position's risk state from its sub-ledger rows.
type Evaluator struct {
	positions  storage.PositionStore
	collateral storage.CollateralStore
	debt       storage.DebtStore
	snapshots  storage.PositionSnapshotStore
	registry   *registry.Registry
}

// New creates a risk evaluator over the given stores and price registry.
func New(
	positions storage.PositionStore,
	collateral storage.CollateralStore,
	debt storage.DebtStore,
	snapshots storage.PositionSnapshotStore,
	reg *registry.Registry,
) *Evaluator {
	return &Evaluator{
		positions:  positions,
		collateral: collateral,
		debt:       debt,
		snapshots:  snapshots,
		registry:   reg,
	}
}

// ComputeHealthFactor returns (collateral * liquidationThreshold) / debt, or
// the no-debt sentinel when debt is zero or negative.
func ComputeHealthFactor(collateralUSD, debtUSD, liquidationThreshold decimal.Decimal) decimal.Decimal {
	if !debtUSD.IsPositive() {
		return domain.HealthFactorNoDebt
	}
	return collateralUSD.Mul(liquidationThreshold).Div(debtUSD)
}

// ClassifyRisk maps a health factor to its risk band.
func ClassifyRisk(healthFactor decimal.Decimal) domain.RiskLevel {
	switch {
	case healthFactor.LessThan(hfCritical):
		return domain.RiskCritical
	case healthFactor.LessThan(hfHigh):
		return domain.RiskHigh
	case healthFactor.LessThan(hfMedium):
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// EstimateTimeToLiquidation returns the projected seconds until the health
// factor decays to 1.0 under the linear drain model, or nil when the position
// is at or below the minimum health factor or the projection exceeds the
// one-year horizon.
func EstimateTimeToLiquidation(healthFactor decimal.Decimal) *int64 {
	if healthFactor.LessThanOrEqual(ttlMinHealthFactor) {
		return nil
	}
	seconds := healthFactor.Sub(decimal.NewFromInt(1)).Div(ttlDrainPerSecond).IntPart()
	if seconds >= ttlHorizonSeconds {
		return nil
	}
	return &seconds
}

// Evaluate recomputes a position's USD totals, health factor, risk band, and
// liquidation estimate, persists the position, and appends one snapshot.
// Positions not tracked by the store are skipped without error.
func (e *Evaluator) Evaluate(ctx context.Context, position string, timestamp, blockNumber int64) error {
	pos, err := e.positions.Get(ctx, position)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load position %s: %w", position, err)
	}

	collateralUSD, err := e.sumCollateralUSD(ctx, position)
	if err != nil {
		return err
	}
	debtUSD, err := e.sumDebtUSD(ctx, position)
	if err != nil {
		return err
	}

	hf := ComputeHealthFactor(collateralUSD, debtUSD, pos.LiquidationThreshold)

	pos.TotalCollateralUSD = collateralUSD
	pos.TotalDebtUSD = debtUSD
	pos.NetEquityUSD = collateralUSD.Sub(debtUSD)
	pos.HealthFactor = hf
	pos.RiskLevel = ClassifyRisk(hf)
	pos.TimeToLiquidation = EstimateTimeToLiquidation(hf)
	pos.LastUpdatedAt = timestamp

	if err := e.positions.Upsert(ctx, pos); err != nil {
		return fmt.Errorf("save position %s: %w", position, err)
	}

	snap := &domain.PositionSnapshot{
		Position:           position,
		HealthFactor:       hf,
		TotalCollateralUSD: collateralUSD,
		TotalDebtUSD:       debtUSD,
		NetEquityUSD:       pos.NetEquityUSD,
		Timestamp:          timestamp,
		BlockNumber:        blockNumber,
	}
	if err := e.snapshots.Upsert(ctx, snap); err != nil {
		return fmt.Errorf("append position snapshot %s: %w", position, err)
	}
	return nil
}

func (e *Evaluator) sumCollateralUSD(ctx context.Context, position string) (decimal.Decimal, error) {
	rows, err := e.collateral.GetByPosition(ctx, position)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load collateral rows %s: %w", position, err)
	}

	total := decimal.Zero
	for _, row := range rows {
		usd, err := e.registry.USDValue(ctx, row.Reserve, row.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(usd)
	}
	return total, nil
}

func (e *Evaluator) sumDebtUSD(ctx context.Context, position string) (decimal.Decimal, error) {
	rows, err := e.debt.GetByPosition(ctx, position)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load debt rows %s: %w", position, err)
	}

	total := decimal.Zero
	for _, row := range rows {
		usd, err := e.registry.USDValue(ctx, row.Reserve, row.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(usd)
	}
	return total, nil
}
