package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

func TestPositionStore_UpsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionStore(pool)
	ctx := context.Background()

	ttl := int64(1265822)
	pos := &domain.DebtPosition{
		Address:              "0xposition1",
		Owner:                "0xalice",
		Nonce:                2,
		TotalCollateralUSD:   decimal.RequireFromString("4000"),
		TotalDebtUSD:         decimal.RequireFromString("1600"),
		HealthFactor:         decimal.RequireFromString("2"),
		LiquidationThreshold: decimal.RequireFromString("0.8"),
		MaxLTV:               decimal.RequireFromString("0.75"),
		RiskLevel:            domain.RiskLow,
		TimeToLiquidation:    &ttl,
		NetEquityUSD:         decimal.RequireFromString("2400"),
		CreatedAt:            1700000000,
		LastUpdatedAt:        1700000100,
	}
	require.NoError(t, store.Upsert(ctx, pos))

	got, err := store.Get(ctx, pos.Address)
	require.NoError(t, err)
	require.Equal(t, "0xalice", got.Owner)
	require.Equal(t, int64(2), got.Nonce)
	require.True(t, got.HealthFactor.Equal(decimal.RequireFromString("2")))
	require.Equal(t, domain.RiskLow, got.RiskLevel)
	require.NotNil(t, got.TimeToLiquidation)
	require.Equal(t, ttl, *got.TimeToLiquidation)

	// Clearing the estimate persists NULL.
	pos.TimeToLiquidation = nil
	pos.Owner = "0xbob"
	require.NoError(t, store.Upsert(ctx, pos))

	got, err = store.Get(ctx, pos.Address)
	require.NoError(t, err)
	require.Equal(t, "0xbob", got.Owner)
	require.Nil(t, got.TimeToLiquidation)
}

func TestPositionStore_GetMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionStore(pool)

	_, err := store.Get(context.Background(), "0xnothing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
