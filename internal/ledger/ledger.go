// Package ledger maintains per-position collateral and debt sub-ledgers and
// the protocol-wide per-reserve running totals. All operations silently
// ignore positions the marketplace never created: pool events are emitted for
// every user of the underlying protocol, and this filter is what restricts
// the ledger to tracked positions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/storage"
)

// repayOrder fixes the allocation priority across debt tranches: stable debt
// is retired before variable debt.
var repayOrder = []domain.RateMode{domain.RateModeStable, domain.RateModeVariable}

// Ledger applies balance-changing events to sub-ledger rows.
type Ledger struct {
	positions  storage.PositionStore
	collateral storage.CollateralStore
	debt       storage.DebtStore
	aggregates storage.ReserveAggregateStore
	registry   *registry.Registry
}

// New creates a ledger over the given stores and price registry.
func New(
	positions storage.PositionStore,
	collateral storage.CollateralStore,
	debt storage.DebtStore,
	aggregates storage.ReserveAggregateStore,
	reg *registry.Registry,
) *Ledger {
	return &Ledger{
		positions:  positions,
		collateral: collateral,
		debt:       debt,
		aggregates: aggregates,
		registry:   reg,
	}
}

// positionExists reports whether the ledger tracks this position.
func (l *Ledger) positionExists(ctx context.Context, position string) (bool, error) {
	_, err := l.positions.Get(ctx, position)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load position %s: %w", position, err)
	}
	return true, nil
}

// ApplySupply adds collateral to (position, reserve). Returns false if the
// position is not tracked.
func (l *Ledger) ApplySupply(ctx context.Context, position, reserve string, rawAmount *big.Int, timestamp int64) (bool, error) {
	ok, err := l.positionExists(ctx, position)
	if err != nil || !ok {
		return false, err
	}

	amount, err := l.registry.NativeAmount(ctx, reserve, rawAmount)
	if err != nil {
		return false, err
	}

	row, err := l.collateral.Get(ctx, position, reserve)
	if errors.Is(err, storage.ErrNotFound) {
		row = &domain.PositionCollateral{Position: position, Reserve: reserve, Amount: decimal.Zero}
	} else if err != nil {
		return false, fmt.Errorf("load collateral %s-%s: %w", position, reserve, err)
	}

	row.Amount = row.Amount.Add(amount)
	row.LastUpdatedAt = timestamp
	if err := l.collateral.Upsert(ctx, row); err != nil {
		return false, fmt.Errorf("save collateral %s-%s: %w", position, reserve, err)
	}

	if err := l.bumpAggregate(ctx, domain.ReserveCollateral, reserve, amount, timestamp); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyBorrow adds debt to the (position, reserve, rateMode) tranche.
// Returns false if the position is not tracked.
func (l *Ledger) ApplyBorrow(ctx context.Context, position, reserve string, mode domain.RateMode, rawAmount *big.Int, timestamp int64) (bool, error) {
	ok, err := l.positionExists(ctx, position)
	if err != nil || !ok {
		return false, err
	}

	amount, err := l.registry.NativeAmount(ctx, reserve, rawAmount)
	if err != nil {
		return false, err
	}

	row, err := l.debt.Get(ctx, position, reserve, mode)
	if errors.Is(err, storage.ErrNotFound) {
		row = &domain.PositionDebt{Position: position, Reserve: reserve, RateMode: mode, Amount: decimal.Zero}
	} else if err != nil {
		return false, fmt.Errorf("load debt %s-%s-%d: %w", position, reserve, mode, err)
	}

	row.Amount = row.Amount.Add(amount)
	row.LastUpdatedAt = timestamp
	if err := l.debt.Upsert(ctx, row); err != nil {
		return false, fmt.Errorf("save debt %s-%s-%d: %w", position, reserve, mode, err)
	}

	if err := l.bumpAggregate(ctx, domain.ReserveDebt, reserve, amount, timestamp); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyWithdraw subtracts collateral from (position, reserve), clamping at
// zero. The protocol aggregate is decremented by the pre-clamp amount. If the
// collateral row was never created, the withdrawal is a no-op. Returns false
// if the position is not tracked.
func (l *Ledger) ApplyWithdraw(ctx context.Context, position, reserve string, rawAmount *big.Int, timestamp int64) (bool, error) {
	ok, err := l.positionExists(ctx, position)
	if err != nil || !ok {
		return false, err
	}

	row, err := l.collateral.Get(ctx, position, reserve)
	if errors.Is(err, storage.ErrNotFound) {
		// Withdrawal for a reserve the ledger never saw a supply for.
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load collateral %s-%s: %w", position, reserve, err)
	}

	amount, err := l.registry.NativeAmount(ctx, reserve, rawAmount)
	if err != nil {
		return false, err
	}

	row.Amount = row.Amount.Sub(amount)
	if row.Amount.IsNegative() {
		row.Amount = decimal.Zero
	}
	row.LastUpdatedAt = timestamp
	if err := l.collateral.Upsert(ctx, row); err != nil {
		return false, fmt.Errorf("save collateral %s-%s: %w", position, reserve, err)
	}

	if err := l.bumpAggregate(ctx, domain.ReserveCollateral, reserve, amount.Neg(), timestamp); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyRepay pays down debt across the position's tranches for one reserve.
//
// Allocation: rate modes are visited in fixed order, stable before variable.
// Each tranche with positive outstanding debt absorbs
// min(remaining, tranche amount); allocation stops as soon as the payment is
// exhausted. Any excess over total outstanding debt is silently discarded —
// the on-chain event amount already reflects actual debt reduction.
//
// The protocol debt aggregate is decremented by the requested amount
// regardless of how much was allocated.
//
// Returns the USD value of the allocated repayment at current prices, and
// false if the position is not tracked.
func (l *Ledger) ApplyRepay(ctx context.Context, position, reserve string, rawAmount *big.Int, timestamp int64) (decimal.Decimal, bool, error) {
	ok, err := l.positionExists(ctx, position)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}

	amount, err := l.registry.NativeAmount(ctx, reserve, rawAmount)
	if err != nil {
		return decimal.Zero, false, err
	}

	remaining := amount
	totalRepaidUSD := decimal.Zero

	for _, mode := range repayOrder {
		if !remaining.IsPositive() {
			break
		}

		row, err := l.debt.Get(ctx, position, reserve, mode)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("load debt %s-%s-%d: %w", position, reserve, mode, err)
		}
		if !row.Amount.IsPositive() {
			continue
		}

		pay := remaining
		if pay.GreaterThan(row.Amount) {
			pay = row.Amount
		}

		row.Amount = row.Amount.Sub(pay)
		row.LastUpdatedAt = timestamp
		if err := l.debt.Upsert(ctx, row); err != nil {
			return decimal.Zero, false, fmt.Errorf("save debt %s-%s-%d: %w", position, reserve, mode, err)
		}

		usd, err := l.registry.USDValue(ctx, reserve, pay)
		if err != nil {
			return decimal.Zero, false, err
		}
		totalRepaidUSD = totalRepaidUSD.Add(usd)
		remaining = remaining.Sub(pay)
	}

	if err := l.bumpAggregate(ctx, domain.ReserveDebt, reserve, amount.Neg(), timestamp); err != nil {
		return decimal.Zero, false, err
	}
	return totalRepaidUSD, true, nil
}

// bumpAggregate applies a delta to a per-reserve protocol total. A missing
// aggregate is created only for positive deltas; decrements against a total
// that was never established are skipped.
func (l *Ledger) bumpAggregate(ctx context.Context, kind domain.ReserveAggregateKind, reserve string, delta decimal.Decimal, timestamp int64) error {
	agg, err := l.aggregates.Get(ctx, kind, reserve)
	if errors.Is(err, storage.ErrNotFound) {
		if !delta.IsPositive() {
			return nil
		}
		agg = &domain.ReserveAggregate{Kind: kind, Reserve: reserve, Amount: decimal.Zero}
	} else if err != nil {
		return fmt.Errorf("load %s aggregate %s: %w", kind, reserve, err)
	}

	agg.Amount = agg.Amount.Add(delta)
	agg.LastUpdatedAt = timestamp
	if err := l.aggregates.Upsert(ctx, agg); err != nil {
		return fmt.Errorf("save %s aggregate %s: %w", kind, reserve, err)
	}
	return nil
}
