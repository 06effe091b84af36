package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Upsert inserts or replaces a position by contract address.
func (s *PositionStore) Upsert(ctx context.Context, p *domain.DebtPosition) error {
	if p == nil || p.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO debt_positions (
			address, owner, nonce,
			total_collateral_usd, total_debt_usd, health_factor,
			liquidation_threshold, max_ltv, risk_level,
			time_to_liquidation, net_equity_usd,
			created_at, last_updated_at
		) VALUES (
			$1, $2, $3, $4::numeric, $5::numeric, $6::numeric,
			$7::numeric, $8::numeric, $9, $10, $11::numeric, $12, $13
		)
		ON CONFLICT (address) DO UPDATE SET
			owner = EXCLUDED.owner,
			nonce = EXCLUDED.nonce,
			total_collateral_usd = EXCLUDED.total_collateral_usd,
			total_debt_usd = EXCLUDED.total_debt_usd,
			health_factor = EXCLUDED.health_factor,
			liquidation_threshold = EXCLUDED.liquidation_threshold,
			max_ltv = EXCLUDED.max_ltv,
			risk_level = EXCLUDED.risk_level,
			time_to_liquidation = EXCLUDED.time_to_liquidation,
			net_equity_usd = EXCLUDED.net_equity_usd,
			last_updated_at = EXCLUDED.last_updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		p.Address,
		p.Owner,
		p.Nonce,
		p.TotalCollateralUSD.String(),
		p.TotalDebtUSD.String(),
		p.HealthFactor.String(),
		p.LiquidationThreshold.String(),
		p.MaxLTV.String(),
		string(p.RiskLevel),
		p.TimeToLiquidation,
		p.NetEquityUSD.String(),
		p.CreatedAt,
		p.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// Get retrieves a position by contract address. Returns ErrNotFound if not exists.
func (s *PositionStore) Get(ctx context.Context, address string) (*domain.DebtPosition, error) {
	query := `
		SELECT address, owner, nonce,
		       total_collateral_usd::text, total_debt_usd::text, health_factor::text,
		       liquidation_threshold::text, max_ltv::text, risk_level,
		       time_to_liquidation, net_equity_usd::text,
		       created_at, last_updated_at
		FROM debt_positions
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

// scanPosition scans a single row into DebtPosition.
func scanPosition(row pgx.Row) (*domain.DebtPosition, error) {
	var (
		p         domain.DebtPosition
		riskLevel string
		decimals  [6]string
	)

	err := row.Scan(
		&p.Address,
		&p.Owner,
		&p.Nonce,
		&decimals[0],
		&decimals[1],
		&decimals[2],
		&decimals[3],
		&decimals[4],
		&riskLevel,
		&p.TimeToLiquidation,
		&decimals[5],
		&p.CreatedAt,
		&p.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fields := []*decimal.Decimal{
		&p.TotalCollateralUSD, &p.TotalDebtUSD, &p.HealthFactor,
		&p.LiquidationThreshold, &p.MaxLTV, &p.NetEquityUSD,
	}
	for i, field := range fields {
		*field, err = decimal.NewFromString(decimals[i])
		if err != nil {
			return nil, fmt.Errorf("parse position decimal: %w", err)
		}
	}
	p.RiskLevel = domain.RiskLevel(riskLevel)

	return &p, nil
}
