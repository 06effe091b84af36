package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

func TestOracleMappingStore_UpsertPairAndResolve(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOracleMappingStore(pool)
	ctx := context.Background()

	fwd := &domain.AssetOracleMapping{
		Asset: "0xasset1", Oracle: "0xoracle1", IsActive: true,
		CreatedAt: 100, LastUpdatedAt: 100,
	}
	rev := &domain.OracleAssetMapping{
		Oracle: "0xoracle1", Asset: "0xasset1", IsActive: true,
		CreatedAt: 100, LastUpdatedAt: 100,
	}
	require.NoError(t, store.UpsertPair(ctx, fwd, rev))

	gotFwd, err := store.GetByAsset(ctx, "0xasset1")
	require.NoError(t, err)
	require.Equal(t, "0xoracle1", gotFwd.Oracle)
	require.True(t, gotFwd.IsActive)

	gotRev, err := store.GetByOracle(ctx, "0xoracle1")
	require.NoError(t, err)
	require.Equal(t, "0xasset1", gotRev.Asset)

	// Re-pointing the asset to a new oracle leaves the old reverse row behind.
	fwd.Oracle = "0xoracle2"
	fwd.LastUpdatedAt = 200
	rev2 := &domain.OracleAssetMapping{
		Oracle: "0xoracle2", Asset: "0xasset1", IsActive: true,
		CreatedAt: 200, LastUpdatedAt: 200,
	}
	require.NoError(t, store.UpsertPair(ctx, fwd, rev2))

	gotFwd, err = store.GetByAsset(ctx, "0xasset1")
	require.NoError(t, err)
	require.Equal(t, "0xoracle2", gotFwd.Oracle)

	stale, err := store.GetByOracle(ctx, "0xoracle1")
	require.NoError(t, err)
	require.Equal(t, "0xasset1", stale.Asset)
}

func TestOracleMappingStore_GetMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOracleMappingStore(pool)

	_, err := store.GetByAsset(context.Background(), "0xnothing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetByOracle(context.Background(), "0xnothing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
