package domain

import "github.com/shopspring/decimal"

// Transaction is a per-event provenance record for marketplace events.
// Identity is the transaction hash.
type Transaction struct {
	Hash        string // transaction hash (lowercase hex), identity
	BlockNumber int64
	Timestamp   int64
	From        string // sender wallet address
	To          string // target contract address ("" when unavailable)
}

// ExecutionStrategy labels how a sale order consumed the position.
type ExecutionStrategy string

// Execution strategies.
const (
	StrategyFullCleanup ExecutionStrategy = "FULL_CLEANUP" // full sale, ownership transfers
	StrategyStrategic   ExecutionStrategy = "STRATEGIC"    // partial sale, ownership retained
)

// OrderExecution records a completed sale order against a position.
// Identity is the transaction hash.
type OrderExecution struct {
	TxHash      string // identity
	Position    string // position contract address
	Buyer       string // buyer wallet address
	Seller      string // seller wallet address at execution time
	ValueUSD    decimal.Decimal
	Strategy    ExecutionStrategy
	BlockNumber int64
	Timestamp   int64
}
