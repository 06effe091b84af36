package registry

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lending-risk-lab/internal/storage/memory"
)

const (
	wethAsset = "0xd6c774778564ec1973b24a15ee4a5d00742e6575"
	usdcAsset = "0x005104eb2fd93a0c8f26e18934289ab91596e6bf"
	ethOracle = "0x5f4ec3df9cbd43714fe2740f5e3616155c5b8419"
)

func newTestRegistry() (*Registry, *memory.PriceSnapshotStore) {
	snaps := memory.NewPriceSnapshotStore()
	return New(memory.NewTokenStore(), memory.NewOracleMappingStore(), snaps), snaps
}

func TestGetOrCreateToken_KnownAndUnknownAssets(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	weth, err := reg.GetOrCreateToken(ctx, wethAsset)
	require.NoError(t, err)
	require.Equal(t, "WETH", weth.Symbol)
	require.Equal(t, 18, weth.Decimals)

	usdc, err := reg.GetOrCreateToken(ctx, usdcAsset)
	require.NoError(t, err)
	require.Equal(t, "USDC", usdc.Symbol)
	require.Equal(t, 6, usdc.Decimals)

	other, err := reg.GetOrCreateToken(ctx, "0xno-such-asset")
	require.NoError(t, err)
	require.Equal(t, "UNKNOWN", other.Symbol)
	require.Equal(t, 18, other.Decimals)
}

func TestUpdateMapping_ResolvesBothWays(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, reg.UpdateMapping(ctx, wethAsset, ethOracle, 1000))

	asset, ok, err := reg.ResolveAsset(ctx, ethOracle)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wethAsset, asset)

	oracle, ok, err := reg.ResolveOracle(ctx, wethAsset)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ethOracle, oracle)
}

func TestUpdateMapping_RepointLeavesStaleReverseEntry(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, reg.UpdateMapping(ctx, wethAsset, ethOracle, 1000))
	require.NoError(t, reg.UpdateMapping(ctx, wethAsset, "0xoracle2", 2000))

	oracle, ok, err := reg.ResolveOracle(ctx, wethAsset)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0xoracle2", oracle)

	// The old oracle still resolves until it is itself re-pointed.
	asset, ok, err := reg.ResolveAsset(ctx, ethOracle)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wethAsset, asset)
}

func TestIngestPriceTick_AppliesAndSnapshots(t *testing.T) {
	reg, snaps := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, reg.UpdateMapping(ctx, wethAsset, ethOracle, 1000))

	// $2000.50 at 8 implied decimals.
	result, err := reg.IngestPriceTick(ctx, ethOracle, big.NewInt(200050000000), 1100, 50)
	require.NoError(t, err)
	require.Equal(t, TickApplied, result)

	price, err := reg.PriceUSD(ctx, wethAsset)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.RequireFromString("2000.5")))

	history, err := snaps.GetByAsset(ctx, wethAsset)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, int64(50), history[0].BlockNumber)
}

func TestIngestPriceTick_UnknownOracleDropped(t *testing.T) {
	reg, snaps := newTestRegistry()
	ctx := context.Background()

	result, err := reg.IngestPriceTick(ctx, "0xunmapped", big.NewInt(100000000), 1100, 50)
	require.NoError(t, err)
	require.Equal(t, TickUnknownOracle, result)

	history, err := snaps.GetByAsset(ctx, wethAsset)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestIngestPriceTick_NonPositiveDropped(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, reg.UpdateMapping(ctx, wethAsset, ethOracle, 1000))

	for _, raw := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		result, err := reg.IngestPriceTick(ctx, ethOracle, raw, 1100, 50)
		require.NoError(t, err)
		require.Equal(t, TickNonPositive, result)
	}

	// Price stays at the degraded-mode default.
	price, err := reg.PriceUSD(ctx, wethAsset)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(1)))
}

func TestPriceUSD_DefaultsToOneDollar(t *testing.T) {
	reg, _ := newTestRegistry()

	price, err := reg.PriceUSD(context.Background(), "0xnever-seen")
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(1)))
}

func TestNativeAmount_UsesTokenDecimals(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	// 1.5 WETH in wei.
	weth, err := reg.NativeAmount(ctx, wethAsset, new(big.Int).SetUint64(1500000000000000000))
	require.NoError(t, err)
	require.True(t, weth.Equal(decimal.RequireFromString("1.5")))

	// 25 USDC at 6 decimals.
	usdc, err := reg.NativeAmount(ctx, usdcAsset, big.NewInt(25000000))
	require.NoError(t, err)
	require.True(t, usdc.Equal(decimal.NewFromInt(25)))

	zero, err := reg.NativeAmount(ctx, wethAsset, nil)
	require.NoError(t, err)
	require.True(t, zero.IsZero())
}

func TestUSDValue_MultipliesByCurrentPrice(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, reg.UpdateMapping(ctx, wethAsset, ethOracle, 1000))
	_, err := reg.IngestPriceTick(ctx, ethOracle, big.NewInt(200000000000), 1100, 50)
	require.NoError(t, err)

	usd, err := reg.USDValue(ctx, wethAsset, decimal.RequireFromString("2"))
	require.NoError(t, err)
	require.True(t, usd.Equal(decimal.NewFromInt(4000)))
}
