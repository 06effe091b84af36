package reserves

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lending-risk-lab/internal/feed"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/storage/memory"
)

func TestBpsToRatio(t *testing.T) {
	require.True(t, bpsToRatio(8000).Equal(decimal.RequireFromString("0.8")))
	require.True(t, bpsToRatio(10500).Equal(decimal.RequireFromString("1.05")))
	require.True(t, bpsToRatio(0).IsZero())
}

func TestApply_InitializeThenConfigure(t *testing.T) {
	ctx := context.Background()

	configs := memory.NewAssetConfigStore()
	history := memory.NewConfigChangeStore()
	reg := registry.New(memory.NewTokenStore(), memory.NewOracleMappingStore(), memory.NewPriceSnapshotStore())
	mgr := New(configs, history, reg)

	asset := common.HexToAddress("0xd6c774778564ec1973b24a15ee4a5d00742e6575")
	assetKey := feed.AddrKey(asset)

	err := mgr.Apply(ctx, &feed.ReserveConfig{
		Kind:   feed.ConfigReserveInitialized,
		Asset:  asset,
		AToken: common.HexToAddress("0xa1"),
	}, 100, 0, 1000, "0xtx1")
	require.NoError(t, err)

	err = mgr.Apply(ctx, &feed.ReserveConfig{
		Kind:                    feed.ConfigCollateralChanged,
		Asset:                   asset,
		LTVBps:                  7500,
		LiquidationThresholdBps: 8000,
		LiquidationBonusBps:     10500,
	}, 100, 1, 1000, "0xtx1")
	require.NoError(t, err)

	row, err := configs.Get(ctx, assetKey)
	require.NoError(t, err)
	require.Equal(t, "WETH", row.Symbol)
	require.Equal(t, int64(1000), row.InitializedAt)
	require.True(t, row.LTV.Equal(decimal.RequireFromString("0.75")))
	require.True(t, row.LiquidationThreshold.Equal(decimal.RequireFromString("0.8")))
	require.True(t, row.LiquidationBonus.Equal(decimal.RequireFromString("1.05")))

	changes, err := history.GetByAsset(ctx, assetKey)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.Equal(t, "ReserveInitialized", changes[0].EventType)
	require.Equal(t, "CollateralConfigurationChanged", changes[1].EventType)
}

func TestApply_FlagsAndCaps(t *testing.T) {
	ctx := context.Background()

	configs := memory.NewAssetConfigStore()
	history := memory.NewConfigChangeStore()
	reg := registry.New(memory.NewTokenStore(), memory.NewOracleMappingStore(), memory.NewPriceSnapshotStore())
	mgr := New(configs, history, reg)

	asset := common.HexToAddress("0x005104eb2fd93a0c8f26e18934289ab91596e6bf")
	assetKey := feed.AddrKey(asset)

	err := mgr.Apply(ctx, &feed.ReserveConfig{
		Kind:    feed.ConfigFlagChanged,
		Asset:   asset,
		Flag:    feed.FlagBorrowing,
		Enabled: true,
	}, 200, 0, 2000, "0xtx2")
	require.NoError(t, err)

	err = mgr.Apply(ctx, &feed.ReserveConfig{
		Kind:  feed.ConfigCapChanged,
		Asset: asset,
		Cap:   feed.CapSupply,
		Value: 1000000,
	}, 200, 1, 2000, "0xtx2")
	require.NoError(t, err)

	row, err := configs.Get(ctx, assetKey)
	require.NoError(t, err)
	require.True(t, row.BorrowingEnabled)
	require.Equal(t, int64(1000000), row.SupplyCap)
}
