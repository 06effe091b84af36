package clickhouse

import (
	"context"
	"fmt"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// PriceSnapshotStore implements storage.PriceSnapshotStore using ClickHouse.
type PriceSnapshotStore struct {
	conn *Conn
}

// NewPriceSnapshotStore creates a new PriceSnapshotStore.
func NewPriceSnapshotStore(conn *Conn) *PriceSnapshotStore {
	return &PriceSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSnapshotStore = (*PriceSnapshotStore)(nil)

// Upsert appends one snapshot. A colliding (asset, timestamp) row converges
// to the newest insert through the ReplacingMergeTree engine.
func (s *PriceSnapshotStore) Upsert(ctx context.Context, snap *domain.PriceSnapshot) error {
	if snap == nil || snap.Asset == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO price_snapshots (
			asset, price_usd, timestamp, block_number
		) VALUES (?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		snap.Asset, snap.PriceUSD, snap.Timestamp, snap.BlockNumber,
	)
	if err != nil {
		return fmt.Errorf("insert price snapshot: %w", err)
	}
	return nil
}

// GetByAsset retrieves all snapshots for an asset, ordered by timestamp ASC.
func (s *PriceSnapshotStore) GetByAsset(ctx context.Context, asset string) ([]*domain.PriceSnapshot, error) {
	query := `
		SELECT asset, price_usd, timestamp, block_number
		FROM price_snapshots FINAL
		WHERE asset = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, asset)
	if err != nil {
		return nil, fmt.Errorf("query price snapshots: %w", err)
	}
	defer rows.Close()

	return scanPriceSnapshots(rows)
}

// scanPriceSnapshots scans multiple rows.
func scanPriceSnapshots(rows chRows) ([]*domain.PriceSnapshot, error) {
	var snaps []*domain.PriceSnapshot

	for rows.Next() {
		var snap domain.PriceSnapshot
		err := rows.Scan(&snap.Asset, &snap.PriceUSD, &snap.Timestamp, &snap.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("scan price snapshot row: %w", err)
		}
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price snapshot rows: %w", err)
	}

	return snaps, nil
}
