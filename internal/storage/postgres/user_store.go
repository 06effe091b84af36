package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// Upsert inserts or replaces a user by wallet address.
func (s *UserStore) Upsert(ctx context.Context, u *domain.User) error {
	if u == nil || u.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO users (
			address, total_positions, total_orders_created, total_orders_executed,
			total_volume_traded, created_at, last_active_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			total_positions = EXCLUDED.total_positions,
			total_orders_created = EXCLUDED.total_orders_created,
			total_orders_executed = EXCLUDED.total_orders_executed,
			total_volume_traded = EXCLUDED.total_volume_traded,
			last_active_at = EXCLUDED.last_active_at
	`

	_, err := s.pool.Exec(ctx, query,
		u.Address,
		u.TotalPositions,
		u.TotalOrdersCreated,
		u.TotalOrdersExecuted,
		u.TotalVolumeTraded.String(),
		u.CreatedAt,
		u.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Get retrieves a user by wallet address. Returns ErrNotFound if not exists.
func (s *UserStore) Get(ctx context.Context, address string) (*domain.User, error) {
	query := `
		SELECT address, total_positions, total_orders_created, total_orders_executed,
		       total_volume_traded::text, created_at, last_active_at
		FROM users
		WHERE address = $1
	`

	var (
		u         domain.User
		volumeStr string
	)
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&u.Address,
		&u.TotalPositions,
		&u.TotalOrdersCreated,
		&u.TotalOrdersExecuted,
		&volumeStr,
		&u.CreatedAt,
		&u.LastActiveAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	u.TotalVolumeTraded, err = decimal.NewFromString(volumeStr)
	if err != nil {
		return nil, fmt.Errorf("parse user volume: %w", err)
	}
	return &u, nil
}
