// Package registry owns token metadata, the bidirectional asset<->oracle
// mapping, and price ingestion. It is the only path that advances a token's
// live price; the ledger and risk evaluator always read the stored price.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// oracleDecimals is the fixed-point precision of raw oracle answers.
const oracleDecimals = 8

// defaultPriceUSD is the degraded-mode price substituted when no price is
// known for an asset. Can silently mis-value a position; a known limitation,
// not corrected implicitly.
var defaultPriceUSD = decimal.NewFromInt(1)

// TickResult describes how a price tick was handled.
type TickResult int

// Tick outcomes.
const (
	TickApplied TickResult = iota
	TickUnknownOracle
	TickNonPositive
)

// Registry resolves oracles to assets in O(1) through the stored
// bidirectional mapping, never by scanning known tokens.
type Registry struct {
	tokens    storage.TokenStore
	mappings  storage.OracleMappingStore
	snapshots storage.PriceSnapshotStore
}

// New creates a price registry over the given stores.
func New(tokens storage.TokenStore, mappings storage.OracleMappingStore, snapshots storage.PriceSnapshotStore) *Registry {
	return &Registry{
		tokens:    tokens,
		mappings:  mappings,
		snapshots: snapshots,
	}
}

// GetOrCreateToken loads a token, creating it lazily on first reference.
// Decimals are fixed at creation and never change afterwards.
func (r *Registry) GetOrCreateToken(ctx context.Context, asset string) (*domain.Token, error) {
	t, err := r.tokens.Get(ctx, asset)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load token %s: %w", asset, err)
	}

	meta := lookupMeta(asset)
	t = &domain.Token{
		Asset:    asset,
		Symbol:   meta.Symbol,
		Decimals: meta.Decimals,
		PriceUSD: decimal.Zero,
	}
	if err := r.tokens.Upsert(ctx, t); err != nil {
		return nil, fmt.Errorf("create token %s: %w", asset, err)
	}
	return t, nil
}

// UpdateMapping upserts both halves of the asset<->oracle relation in one
// store call, so downstream readers always see a consistent pair. Repeating
// the same pair refreshes timestamps but is a no-op on the relationship.
// Re-pointing an asset leaves the previous oracle's reverse row in place
// until that oracle is itself re-pointed.
func (r *Registry) UpdateMapping(ctx context.Context, asset, oracle string, timestamp int64) error {
	fwd, err := r.mappings.GetByAsset(ctx, asset)
	if errors.Is(err, storage.ErrNotFound) {
		fwd = &domain.AssetOracleMapping{Asset: asset, CreatedAt: timestamp}
	} else if err != nil {
		return fmt.Errorf("load asset mapping %s: %w", asset, err)
	}
	fwd.Oracle = oracle
	fwd.IsActive = true
	fwd.LastUpdatedAt = timestamp

	rev, err := r.mappings.GetByOracle(ctx, oracle)
	if errors.Is(err, storage.ErrNotFound) {
		rev = &domain.OracleAssetMapping{Oracle: oracle, CreatedAt: timestamp}
	} else if err != nil {
		return fmt.Errorf("load oracle mapping %s: %w", oracle, err)
	}
	rev.Asset = asset
	rev.IsActive = true
	rev.LastUpdatedAt = timestamp

	if err := r.mappings.UpsertPair(ctx, fwd, rev); err != nil {
		return fmt.Errorf("upsert mapping %s<->%s: %w", asset, oracle, err)
	}

	// Keep the token's oracle source current.
	token, err := r.GetOrCreateToken(ctx, asset)
	if err != nil {
		return err
	}
	token.OracleSource = oracle
	if err := r.tokens.Upsert(ctx, token); err != nil {
		return fmt.Errorf("update token oracle source %s: %w", asset, err)
	}
	return nil
}

// ResolveAsset returns the asset an oracle currently prices, if an active
// mapping exists.
func (r *Registry) ResolveAsset(ctx context.Context, oracle string) (string, bool, error) {
	m, err := r.mappings.GetByOracle(ctx, oracle)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve asset for oracle %s: %w", oracle, err)
	}
	if !m.IsActive {
		return "", false, nil
	}
	return m.Asset, true, nil
}

// ResolveOracle returns the oracle currently serving an asset, if an active
// mapping exists.
func (r *Registry) ResolveOracle(ctx context.Context, asset string) (string, bool, error) {
	m, err := r.mappings.GetByAsset(ctx, asset)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve oracle for asset %s: %w", asset, err)
	}
	if !m.IsActive {
		return "", false, nil
	}
	return m.Oracle, true, nil
}

// IngestPriceTick applies one oracle answer: resolves the oracle to its
// asset, converts the 8-decimal fixed-point raw value to USD, updates the
// token's live price and appends a PriceSnapshot. Ticks for unmapped oracles
// and non-positive raw values are dropped, never fatal.
func (r *Registry) IngestPriceTick(ctx context.Context, oracle string, rawPrice *big.Int, timestamp, blockNumber int64) (TickResult, error) {
	asset, ok, err := r.ResolveAsset(ctx, oracle)
	if err != nil {
		return TickUnknownOracle, err
	}
	if !ok {
		return TickUnknownOracle, nil
	}

	if rawPrice == nil || rawPrice.Sign() <= 0 {
		return TickNonPositive, nil
	}

	priceUSD := decimal.NewFromBigInt(rawPrice, -oracleDecimals)

	token, err := r.GetOrCreateToken(ctx, asset)
	if err != nil {
		return TickApplied, err
	}
	token.PriceUSD = priceUSD
	token.OracleSource = oracle
	token.LastUpdatedAt = timestamp
	if err := r.tokens.Upsert(ctx, token); err != nil {
		return TickApplied, fmt.Errorf("update token price %s: %w", asset, err)
	}

	snap := &domain.PriceSnapshot{
		Asset:       asset,
		PriceUSD:    priceUSD,
		Timestamp:   timestamp,
		BlockNumber: blockNumber,
	}
	if err := r.snapshots.Upsert(ctx, snap); err != nil {
		return TickApplied, fmt.Errorf("append price snapshot %s: %w", asset, err)
	}
	return TickApplied, nil
}

// PriceUSD returns the current price for an asset, or the $1 degraded-mode
// default when no positive price is known.
func (r *Registry) PriceUSD(ctx context.Context, asset string) (decimal.Decimal, error) {
	t, err := r.tokens.Get(ctx, asset)
	if errors.Is(err, storage.ErrNotFound) {
		return defaultPriceUSD, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("load token price %s: %w", asset, err)
	}
	if t.PriceUSD.IsPositive() {
		return t.PriceUSD, nil
	}
	return defaultPriceUSD, nil
}

// USDValue converts a token-native amount to USD at the current price.
func (r *Registry) USDValue(ctx context.Context, asset string, nativeAmount decimal.Decimal) (decimal.Decimal, error) {
	price, err := r.PriceUSD(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	return nativeAmount.Mul(price), nil
}

// NativeAmount converts a raw integer amount to token-native units through
// the token's decimal precision.
func (r *Registry) NativeAmount(ctx context.Context, asset string, raw *big.Int) (decimal.Decimal, error) {
	token, err := r.GetOrCreateToken(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(raw, -int32(token.Decimals)), nil
}
