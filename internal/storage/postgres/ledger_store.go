package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// CollateralStore implements storage.CollateralStore using PostgreSQL.
type CollateralStore struct {
	pool *Pool
}

// NewCollateralStore creates a new CollateralStore.
func NewCollateralStore(pool *Pool) *CollateralStore {
	return &CollateralStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CollateralStore = (*CollateralStore)(nil)

// Upsert inserts or replaces a row by (position, reserve).
func (s *CollateralStore) Upsert(ctx context.Context, c *domain.PositionCollateral) error {
	if c == nil || c.Position == "" || c.Reserve == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO position_collateral (
			position, reserve, amount, last_updated_at
		) VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (position, reserve) DO UPDATE SET
			amount = EXCLUDED.amount,
			last_updated_at = EXCLUDED.last_updated_at
	`

	_, err := s.pool.Exec(ctx, query, c.Position, c.Reserve, c.Amount.String(), c.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert collateral: %w", err)
	}
	return nil
}

// Get retrieves one row. Returns ErrNotFound if not exists.
func (s *CollateralStore) Get(ctx context.Context, position, reserve string) (*domain.PositionCollateral, error) {
	query := `
		SELECT position, reserve, amount::text, last_updated_at
		FROM position_collateral
		WHERE position = $1 AND reserve = $2
	`

	var (
		c         domain.PositionCollateral
		amountStr string
	)
	err := s.pool.QueryRow(ctx, query, position, reserve).Scan(
		&c.Position, &c.Reserve, &amountStr, &c.LastUpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get collateral: %w", err)
	}

	c.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse collateral amount: %w", err)
	}
	return &c, nil
}

// GetByPosition retrieves all rows for a position, ordered by reserve ASC.
func (s *CollateralStore) GetByPosition(ctx context.Context, position string) ([]*domain.PositionCollateral, error) {
	query := `
		SELECT position, reserve, amount::text, last_updated_at
		FROM position_collateral
		WHERE position = $1
		ORDER BY reserve ASC
	`

	rows, err := s.pool.Query(ctx, query, position)
	if err != nil {
		return nil, fmt.Errorf("query collateral by position: %w", err)
	}
	defer rows.Close()

	var result []*domain.PositionCollateral
	for rows.Next() {
		var (
			c         domain.PositionCollateral
			amountStr string
		)
		if err := rows.Scan(&c.Position, &c.Reserve, &amountStr, &c.LastUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan collateral row: %w", err)
		}
		c.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse collateral amount: %w", err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collateral rows: %w", err)
	}
	return result, nil
}

// DebtStore implements storage.DebtStore using PostgreSQL.
type DebtStore struct {
	pool *Pool
}

// NewDebtStore creates a new DebtStore.
func NewDebtStore(pool *Pool) *DebtStore {
	return &DebtStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DebtStore = (*DebtStore)(nil)

// Upsert inserts or replaces a tranche by (position, reserve, rate_mode).
func (s *DebtStore) Upsert(ctx context.Context, d *domain.PositionDebt) error {
	if d == nil || d.Position == "" || d.Reserve == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO position_debt (
			position, reserve, rate_mode, amount, last_updated_at
		) VALUES ($1, $2, $3, $4::numeric, $5)
		ON CONFLICT (position, reserve, rate_mode) DO UPDATE SET
			amount = EXCLUDED.amount,
			last_updated_at = EXCLUDED.last_updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		d.Position, d.Reserve, int(d.RateMode), d.Amount.String(), d.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert debt: %w", err)
	}
	return nil
}

// Get retrieves one tranche. Returns ErrNotFound if not exists.
func (s *DebtStore) Get(ctx context.Context, position, reserve string, mode domain.RateMode) (*domain.PositionDebt, error) {
	query := `
		SELECT position, reserve, rate_mode, amount::text, last_updated_at
		FROM position_debt
		WHERE position = $1 AND reserve = $2 AND rate_mode = $3
	`

	var (
		d         domain.PositionDebt
		rateMode  int
		amountStr string
	)
	err := s.pool.QueryRow(ctx, query, position, reserve, int(mode)).Scan(
		&d.Position, &d.Reserve, &rateMode, &amountStr, &d.LastUpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get debt: %w", err)
	}

	d.RateMode = domain.RateMode(rateMode)
	d.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse debt amount: %w", err)
	}
	return &d, nil
}

// GetByPosition retrieves all tranches for a position, ordered by
// (reserve ASC, rate mode ASC).
func (s *DebtStore) GetByPosition(ctx context.Context, position string) ([]*domain.PositionDebt, error) {
	query := `
		SELECT position, reserve, rate_mode, amount::text, last_updated_at
		FROM position_debt
		WHERE position = $1
		ORDER BY reserve ASC, rate_mode ASC
	`

	rows, err := s.pool.Query(ctx, query, position)
	if err != nil {
		return nil, fmt.Errorf("query debt by position: %w", err)
	}
	defer rows.Close()

	var result []*domain.PositionDebt
	for rows.Next() {
		var (
			d         domain.PositionDebt
			rateMode  int
			amountStr string
		)
		if err := rows.Scan(&d.Position, &d.Reserve, &rateMode, &amountStr, &d.LastUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan debt row: %w", err)
		}
		d.RateMode = domain.RateMode(rateMode)
		d.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse debt amount: %w", err)
		}
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate debt rows: %w", err)
	}
	return result, nil
}
