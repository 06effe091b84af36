package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

func TestTokenStore_UpsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	token := &domain.Token{
		Asset:         "0xd6c774778564ec1973b24a15ee4a5d00742e6575",
		Symbol:        "WETH",
		Decimals:      18,
		PriceUSD:      decimal.RequireFromString("1999.12345678"),
		OracleSource:  "0xoracle",
		LastUpdatedAt: 1700000000,
	}
	require.NoError(t, store.Upsert(ctx, token))

	got, err := store.Get(ctx, token.Asset)
	require.NoError(t, err)
	require.Equal(t, "WETH", got.Symbol)
	require.Equal(t, 18, got.Decimals)
	require.True(t, got.PriceUSD.Equal(token.PriceUSD))

	// Upsert replaces the price in place.
	token.PriceUSD = decimal.RequireFromString("2050")
	token.LastUpdatedAt = 1700000100
	require.NoError(t, store.Upsert(ctx, token))

	got, err = store.Get(ctx, token.Asset)
	require.NoError(t, err)
	require.True(t, got.PriceUSD.Equal(decimal.RequireFromString("2050")))
	require.Equal(t, int64(1700000100), got.LastUpdatedAt)
}

func TestTokenStore_GetMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	_, err := store.Get(context.Background(), "0xnothing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_InvalidInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	require.ErrorIs(t, store.Upsert(context.Background(), nil), storage.ErrInvalidInput)
	require.ErrorIs(t, store.Upsert(context.Background(), &domain.Token{}), storage.ErrInvalidInput)
}
