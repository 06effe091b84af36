package risk

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/storage/memory"
)

func TestComputeHealthFactor(t *testing.T) {
	tests := []struct {
		name       string
		collateral string
		debt       string
		threshold  string
		want       string
	}{
		{"no debt sentinel", "1000", "0", "0.8", "999999"},
		{"negative debt sentinel", "1000", "-5", "0.8", "999999"},
		{"basic ratio", "1000", "400", "0.8", "2"},
		{"below one", "100", "100", "0.8", "0.8"},
		{"zero collateral", "0", "50", "0.8", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeHealthFactor(
				decimal.RequireFromString(tc.collateral),
				decimal.RequireFromString(tc.debt),
				decimal.RequireFromString(tc.threshold),
			)
			require.True(t, got.Equal(decimal.RequireFromString(tc.want)),
				"got %s, want %s", got, tc.want)
		})
	}
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		hf   string
		want domain.RiskLevel
	}{
		{"0.9", domain.RiskCritical},
		{"1.0999", domain.RiskCritical},
		{"1.1", domain.RiskHigh},
		{"1.25", domain.RiskHigh},
		{"1.3", domain.RiskMedium},
		{"1.99", domain.RiskMedium},
		{"2.0", domain.RiskLow},
		{"999999", domain.RiskLow},
	}

	for _, tc := range tests {
		got := ClassifyRisk(decimal.RequireFromString(tc.hf))
		require.Equal(t, tc.want, got, "hf=%s", tc.hf)
	}
}

func TestEstimateTimeToLiquidation(t *testing.T) {
	t.Run("suppressed at or below minimum", func(t *testing.T) {
		require.Nil(t, EstimateTimeToLiquidation(decimal.RequireFromString("1.05")))
		require.Nil(t, EstimateTimeToLiquidation(decimal.RequireFromString("0.9")))
	})

	t.Run("suppressed beyond one year horizon", func(t *testing.T) {
		// (6 - 1) / 0.000000158 is well over a year.
		require.Nil(t, EstimateTimeToLiquidation(decimal.RequireFromString("6")))
		require.Nil(t, EstimateTimeToLiquidation(domain.HealthFactorNoDebt))
	})

	t.Run("linear projection", func(t *testing.T) {
		got := EstimateTimeToLiquidation(decimal.RequireFromString("1.2"))
		require.NotNil(t, got)
		// (1.2 - 1) / 0.000000158 = 1265822.78..., truncated.
		require.Equal(t, int64(1265822), *got)
	})
}

func TestEvaluate_RecomputesFromLedgerRows(t *testing.T) {
	ctx := context.Background()

	positions := memory.NewPositionStore()
	collateral := memory.NewCollateralStore()
	debt := memory.NewDebtStore()
	snapshots := memory.NewPositionSnapshotStore()
	tokens := memory.NewTokenStore()
	mappings := memory.NewOracleMappingStore()
	reg := registry.New(tokens, mappings, memory.NewPriceSnapshotStore())

	const (
		weth   = "0xd6c774778564ec1973b24a15ee4a5d00742e6575"
		usdc   = "0x005104eb2fd93a0c8f26e18934289ab91596e6bf"
		pos    = "0xpositionA"
		oracle = "0xoracleWETH"
	)

	// WETH at $2000, USDC falls back to the $1 default.
	require.NoError(t, reg.UpdateMapping(ctx, weth, oracle, 100))
	res, err := reg.IngestPriceTick(ctx, oracle, big.NewInt(200000000000), 100, 1)
	require.NoError(t, err)
	require.Equal(t, registry.TickApplied, res)

	require.NoError(t, positions.Upsert(ctx, &domain.DebtPosition{
		Address:              pos,
		Owner:                "0xowner",
		LiquidationThreshold: decimal.RequireFromString("0.8"),
	}))
	require.NoError(t, collateral.Upsert(ctx, &domain.PositionCollateral{
		Position: pos,
		Reserve:  weth,
		Amount:   decimal.NewFromInt(2), // $4000
	}))
	require.NoError(t, debt.Upsert(ctx, &domain.PositionDebt{
		Position: pos,
		Reserve:  usdc,
		RateMode: domain.RateModeVariable,
		Amount:   decimal.NewFromInt(1600), // $1600
	}))

	eval := New(positions, collateral, debt, snapshots, reg)
	require.NoError(t, eval.Evaluate(ctx, pos, 200, 2))

	got, err := positions.Get(ctx, pos)
	require.NoError(t, err)
	require.True(t, got.TotalCollateralUSD.Equal(decimal.NewFromInt(4000)))
	require.True(t, got.TotalDebtUSD.Equal(decimal.NewFromInt(1600)))
	require.True(t, got.NetEquityUSD.Equal(decimal.NewFromInt(2400)))
	// (4000 * 0.8) / 1600 = 2.0
	require.True(t, got.HealthFactor.Equal(decimal.NewFromInt(2)))
	require.Equal(t, domain.RiskLow, got.RiskLevel)
	require.Equal(t, int64(200), got.LastUpdatedAt)

	snaps, err := snapshots.GetByPosition(ctx, pos)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.True(t, snaps[0].HealthFactor.Equal(decimal.NewFromInt(2)))
	require.Equal(t, int64(2), snaps[0].BlockNumber)
}

func TestEvaluate_NoDebtUsesSentinel(t *testing.T) {
	ctx := context.Background()

	positions := memory.NewPositionStore()
	collateral := memory.NewCollateralStore()
	debt := memory.NewDebtStore()
	snapshots := memory.NewPositionSnapshotStore()
	reg := registry.New(memory.NewTokenStore(), memory.NewOracleMappingStore(), memory.NewPriceSnapshotStore())

	require.NoError(t, positions.Upsert(ctx, &domain.DebtPosition{
		Address:              "0xpositionB",
		Owner:                "0xowner",
		LiquidationThreshold: decimal.RequireFromString("0.8"),
	}))

	eval := New(positions, collateral, debt, snapshots, reg)
	require.NoError(t, eval.Evaluate(ctx, "0xpositionB", 100, 1))

	got, err := positions.Get(ctx, "0xpositionB")
	require.NoError(t, err)
	require.True(t, got.HealthFactor.Equal(domain.HealthFactorNoDebt))
	require.Equal(t, domain.RiskLow, got.RiskLevel)
	require.Nil(t, got.TimeToLiquidation)
}

func TestEvaluate_UnknownPositionSkipped(t *testing.T) {
	ctx := context.Background()

	positions := memory.NewPositionStore()
	snapshots := memory.NewPositionSnapshotStore()
	reg := registry.New(memory.NewTokenStore(), memory.NewOracleMappingStore(), memory.NewPriceSnapshotStore())

	eval := New(positions, memory.NewCollateralStore(), memory.NewDebtStore(), snapshots, reg)
	require.NoError(t, eval.Evaluate(ctx, "0xnobody", 100, 1))

	snaps, err := snapshots.GetByPosition(ctx, "0xnobody")
	require.NoError(t, err)
	require.Empty(t, snaps)
}
