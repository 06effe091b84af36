package domain

import "github.com/shopspring/decimal"

// ProtocolMetricsID is the identity of the singleton metrics row.
const ProtocolMetricsID = "protocol"

// ProtocolMetrics is the singleton dashboard aggregate. It is maintained
// additively by the aggregator and never recomputed from a full re-scan.
type ProtocolMetrics struct {
	TotalUsers        int64
	TotalPositions    int64
	TotalActiveOrders int64
	TotalVolumeUSD    decimal.Decimal // cumulative traded volume across sale executions
	LastUpdatedAt     int64
}

// User tracks per-wallet activity. Created lazily on first interaction.
type User struct {
	Address             string // wallet address (lowercase hex), identity
	TotalPositions      int64
	TotalOrdersCreated  int64
	TotalOrdersExecuted int64
	TotalVolumeTraded   decimal.Decimal
	CreatedAt           int64 // first-seen timestamp
	LastActiveAt        int64
}
