package domain

import "github.com/shopspring/decimal"

// Token represents an on-chain reserve asset and its live USD price.
// Identity is the lowercase hex asset address. Created lazily on first
// reference; decimals are fixed at creation and never change.
type Token struct {
	Asset         string          // asset contract address (lowercase hex)
	Symbol        string          // token symbol, "UNKNOWN" if not in the known table
	Decimals      int             // native decimal precision, 0-18
	PriceUSD      decimal.Decimal // current price in USD, non-negative
	OracleSource  string          // oracle address currently sourcing the price ("" if none)
	LastUpdatedAt int64           // Unix timestamp of the last price update
}

// PriceSnapshot is an immutable point-in-time price record.
// Identity is "<asset>-<timestamp>"; a second snapshot for the same token in
// the same second overwrites the first (accepted collision, not an error).
type PriceSnapshot struct {
	Asset       string          // asset contract address (lowercase hex)
	PriceUSD    decimal.Decimal // price at snapshot time
	Timestamp   int64           // Unix timestamp
	BlockNumber int64           // block the update landed in
}

// ID returns the snapshot identity.
func (s *PriceSnapshot) ID() string {
	return s.Asset + "-" + formatInt(s.Timestamp)
}
