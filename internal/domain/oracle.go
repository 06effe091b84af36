package domain

// AssetOracleMapping is the forward half of the asset<->oracle relation,
// keyed by asset address. The forward and reverse rows are always written
// together; a reader must never observe only one side updated.
type AssetOracleMapping struct {
	Asset         string // asset contract address (lowercase hex), identity
	Oracle        string // oracle aggregator address currently serving this asset
	IsActive      bool   // inactive mappings are ignored by resolution
	CreatedAt     int64  // Unix timestamp of first mapping
	LastUpdatedAt int64  // Unix timestamp of last re-point
}

// OracleAssetMapping is the reverse half, keyed by oracle address. Re-pointing
// an asset to a new oracle leaves the old oracle's reverse row in place until
// that oracle is itself re-pointed.
type OracleAssetMapping struct {
	Oracle        string // oracle aggregator address (lowercase hex), identity
	Asset         string // asset the oracle currently prices
	IsActive      bool
	CreatedAt     int64
	LastUpdatedAt int64
}
