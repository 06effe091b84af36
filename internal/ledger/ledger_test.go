package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/storage"
	"lending-risk-lab/internal/storage/memory"
)

const (
	wethAsset = "0xd6c774778564ec1973b24a15ee4a5d00742e6575" // 18 decimals
	usdcAsset = "0x005104eb2fd93a0c8f26e18934289ab91596e6bf" // 6 decimals
	testPos   = "0xposition1"
)

type ledgerFixture struct {
	ledger     *Ledger
	positions  storage.PositionStore
	collateral storage.CollateralStore
	debt       storage.DebtStore
	aggregates storage.ReserveAggregateStore
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	positions := memory.NewPositionStore()
	collateral := memory.NewCollateralStore()
	debt := memory.NewDebtStore()
	aggregates := memory.NewReserveAggregateStore()
	reg := registry.New(memory.NewTokenStore(), memory.NewOracleMappingStore(), memory.NewPriceSnapshotStore())

	require.NoError(t, positions.Upsert(context.Background(), &domain.DebtPosition{
		Address: testPos,
		Owner:   "0xowner",
	}))

	return &ledgerFixture{
		ledger:     New(positions, collateral, debt, aggregates, reg),
		positions:  positions,
		collateral: collateral,
		debt:       debt,
		aggregates: aggregates,
	}
}

// raw builds an integer token amount with the given decimal precision.
func raw(units int64, decimals int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil)
	return new(big.Int).Mul(big.NewInt(units), scale)
}

func TestApplySupply_CreatesRowAndAggregate(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	applied, err := f.ledger.ApplySupply(ctx, testPos, wethAsset, raw(5, 18), 1000)
	require.NoError(t, err)
	require.True(t, applied)

	row, err := f.collateral.Get(ctx, testPos, wethAsset)
	require.NoError(t, err)
	require.True(t, row.Amount.Equal(decimal.NewFromInt(5)))
	require.Equal(t, int64(1000), row.LastUpdatedAt)

	agg, err := f.aggregates.Get(ctx, domain.ReserveCollateral, wethAsset)
	require.NoError(t, err)
	require.True(t, agg.Amount.Equal(decimal.NewFromInt(5)))
}

func TestApplySupply_AccumulatesAcrossEvents(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ApplySupply(ctx, testPos, usdcAsset, raw(100, 6), 1000)
	require.NoError(t, err)
	_, err = f.ledger.ApplySupply(ctx, testPos, usdcAsset, raw(250, 6), 1001)
	require.NoError(t, err)

	row, err := f.collateral.Get(ctx, testPos, usdcAsset)
	require.NoError(t, err)
	require.True(t, row.Amount.Equal(decimal.NewFromInt(350)))
}

func TestApplySupply_UnknownPositionIgnored(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	applied, err := f.ledger.ApplySupply(ctx, "0xuntracked", wethAsset, raw(5, 18), 1000)
	require.NoError(t, err)
	require.False(t, applied)

	_, err = f.collateral.Get(ctx, "0xuntracked", wethAsset)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.aggregates.Get(ctx, domain.ReserveCollateral, wethAsset)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestApplyBorrow_TranchesAreSeparate(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ApplyBorrow(ctx, testPos, usdcAsset, domain.RateModeStable, raw(100, 6), 1000)
	require.NoError(t, err)
	_, err = f.ledger.ApplyBorrow(ctx, testPos, usdcAsset, domain.RateModeVariable, raw(50, 6), 1001)
	require.NoError(t, err)

	stable, err := f.debt.Get(ctx, testPos, usdcAsset, domain.RateModeStable)
	require.NoError(t, err)
	require.True(t, stable.Amount.Equal(decimal.NewFromInt(100)))

	variable, err := f.debt.Get(ctx, testPos, usdcAsset, domain.RateModeVariable)
	require.NoError(t, err)
	require.True(t, variable.Amount.Equal(decimal.NewFromInt(50)))

	agg, err := f.aggregates.Get(ctx, domain.ReserveDebt, usdcAsset)
	require.NoError(t, err)
	require.True(t, agg.Amount.Equal(decimal.NewFromInt(150)))
}

func TestApplyWithdraw_ClampsAtZero(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ApplySupply(ctx, testPos, wethAsset, raw(5, 18), 1000)
	require.NoError(t, err)

	applied, err := f.ledger.ApplyWithdraw(ctx, testPos, wethAsset, raw(8, 18), 1001)
	require.NoError(t, err)
	require.True(t, applied)

	row, err := f.collateral.Get(ctx, testPos, wethAsset)
	require.NoError(t, err)
	require.True(t, row.Amount.IsZero())

	// The protocol total moves by the pre-clamp amount.
	agg, err := f.aggregates.Get(ctx, domain.ReserveCollateral, wethAsset)
	require.NoError(t, err)
	require.True(t, agg.Amount.Equal(decimal.NewFromInt(-3)))
}

func TestApplyWithdraw_MissingRowIsNoOp(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	applied, err := f.ledger.ApplyWithdraw(ctx, testPos, wethAsset, raw(1, 18), 1000)
	require.NoError(t, err)
	require.True(t, applied)

	_, err = f.collateral.Get(ctx, testPos, wethAsset)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.aggregates.Get(ctx, domain.ReserveCollateral, wethAsset)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestApplyRepay_StableBeforeVariable(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ApplyBorrow(ctx, testPos, usdcAsset, domain.RateModeStable, raw(100, 6), 1000)
	require.NoError(t, err)
	_, err = f.ledger.ApplyBorrow(ctx, testPos, usdcAsset, domain.RateModeVariable, raw(50, 6), 1001)
	require.NoError(t, err)

	usdRepaid, applied, err := f.ledger.ApplyRepay(ctx, testPos, usdcAsset, raw(120, 6), 1002)
	require.NoError(t, err)
	require.True(t, applied)
	require.True(t, usdRepaid.Equal(decimal.NewFromInt(120)))

	stable, err := f.debt.Get(ctx, testPos, usdcAsset, domain.RateModeStable)
	require.NoError(t, err)
	require.True(t, stable.Amount.IsZero())

	variable, err := f.debt.Get(ctx, testPos, usdcAsset, domain.RateModeVariable)
	require.NoError(t, err)
	require.True(t, variable.Amount.Equal(decimal.NewFromInt(30)))
}

func TestApplyRepay_ExcessDiscarded(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ApplyBorrow(ctx, testPos, usdcAsset, domain.RateModeVariable, raw(40, 6), 1000)
	require.NoError(t, err)

	usdRepaid, _, err := f.ledger.ApplyRepay(ctx, testPos, usdcAsset, raw(100, 6), 1001)
	require.NoError(t, err)
	require.True(t, usdRepaid.Equal(decimal.NewFromInt(40)))

	variable, err := f.debt.Get(ctx, testPos, usdcAsset, domain.RateModeVariable)
	require.NoError(t, err)
	require.True(t, variable.Amount.IsZero())
}

func TestApplyRepay_AggregateUsesRequestedAmount(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ApplyBorrow(ctx, testPos, usdcAsset, domain.RateModeVariable, raw(100, 6), 1000)
	require.NoError(t, err)

	_, _, err = f.ledger.ApplyRepay(ctx, testPos, usdcAsset, raw(150, 6), 1001)
	require.NoError(t, err)

	// 100 borrowed, 150 requested: the total drops by the requested amount
	// even though only 100 was allocated.
	agg, err := f.aggregates.Get(ctx, domain.ReserveDebt, usdcAsset)
	require.NoError(t, err)
	require.True(t, agg.Amount.Equal(decimal.NewFromInt(-50)))
}

func TestApplyRepay_UnknownPositionIgnored(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	usdRepaid, applied, err := f.ledger.ApplyRepay(ctx, "0xuntracked", usdcAsset, raw(10, 6), 1000)
	require.NoError(t, err)
	require.False(t, applied)
	require.True(t, usdRepaid.IsZero())
}
