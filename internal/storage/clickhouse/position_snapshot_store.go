package clickhouse

import (
	"context"
	"fmt"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// PositionSnapshotStore implements storage.PositionSnapshotStore using ClickHouse.
type PositionSnapshotStore struct {
	conn *Conn
}

// NewPositionSnapshotStore creates a new PositionSnapshotStore.
func NewPositionSnapshotStore(conn *Conn) *PositionSnapshotStore {
	return &PositionSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PositionSnapshotStore = (*PositionSnapshotStore)(nil)

// Upsert appends one snapshot. A colliding (position, timestamp) row
// converges to the newest insert through the ReplacingMergeTree engine.
func (s *PositionSnapshotStore) Upsert(ctx context.Context, snap *domain.PositionSnapshot) error {
	if snap == nil || snap.Position == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO position_snapshots (
			position, health_factor, total_collateral_usd, total_debt_usd,
			net_equity_usd, timestamp, block_number
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		snap.Position, snap.HealthFactor, snap.TotalCollateralUSD,
		snap.TotalDebtUSD, snap.NetEquityUSD, snap.Timestamp, snap.BlockNumber,
	)
	if err != nil {
		return fmt.Errorf("insert position snapshot: %w", err)
	}
	return nil
}

// GetByPosition retrieves all snapshots for a position, ordered by timestamp ASC.
func (s *PositionSnapshotStore) GetByPosition(ctx context.Context, position string) ([]*domain.PositionSnapshot, error) {
	query := `
		SELECT position, health_factor, total_collateral_usd, total_debt_usd,
		       net_equity_usd, timestamp, block_number
		FROM position_snapshots FINAL
		WHERE position = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, position)
	if err != nil {
		return nil, fmt.Errorf("query position snapshots: %w", err)
	}
	defer rows.Close()

	return scanPositionSnapshots(rows)
}

// scanPositionSnapshots scans multiple rows.
func scanPositionSnapshots(rows chRows) ([]*domain.PositionSnapshot, error) {
	var snaps []*domain.PositionSnapshot

	for rows.Next() {
		var snap domain.PositionSnapshot
		err := rows.Scan(
			&snap.Position, &snap.HealthFactor, &snap.TotalCollateralUSD,
			&snap.TotalDebtUSD, &snap.NetEquityUSD, &snap.Timestamp, &snap.BlockNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position snapshot row: %w", err)
		}
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position snapshot rows: %w", err)
	}

	return snaps, nil
}
