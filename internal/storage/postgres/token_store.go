package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or replaces a token by asset address.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.Asset == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			asset, symbol, decimals, price_usd, oracle_source, last_updated_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6)
		ON CONFLICT (asset) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			price_usd = EXCLUDED.price_usd,
			oracle_source = EXCLUDED.oracle_source,
			last_updated_at = EXCLUDED.last_updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		t.Asset,
		t.Symbol,
		t.Decimals,
		t.PriceUSD.String(),
		t.OracleSource,
		t.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// Get retrieves a token by asset address. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(ctx context.Context, asset string) (*domain.Token, error) {
	query := `
		SELECT asset, symbol, decimals, price_usd::text, oracle_source, last_updated_at
		FROM tokens
		WHERE asset = $1
	`

	var (
		t        domain.Token
		priceStr string
	)
	err := s.pool.QueryRow(ctx, query, asset).Scan(
		&t.Asset,
		&t.Symbol,
		&t.Decimals,
		&priceStr,
		&t.OracleSource,
		&t.LastUpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}

	t.PriceUSD, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("parse token price: %w", err)
	}
	return &t, nil
}
