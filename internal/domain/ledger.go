package domain

import "github.com/shopspring/decimal"

// RateMode is the debt interest type tag. A position may hold both modes for
// the same reserve at once; they are separate tranches.
type RateMode int

// Aave interest rate modes.
const (
	RateModeStable   RateMode = 1
	RateModeVariable RateMode = 2
)

// PositionCollateral is a collateral sub-ledger row keyed by
// (position, reserve). Amount is in token-native units divided through the
// token's decimal precision, and never goes negative.
type PositionCollateral struct {
	Position      string          // position contract address
	Reserve       string          // reserve asset address
	Amount        decimal.Decimal // clamped at zero on underflow
	LastUpdatedAt int64
}

// ID returns the row identity.
func (c *PositionCollateral) ID() string {
	return c.Position + "-" + c.Reserve
}

// PositionDebt is a debt sub-ledger row keyed by
// (position, reserve, rate mode).
type PositionDebt struct {
	Position      string
	Reserve       string
	RateMode      RateMode
	Amount        decimal.Decimal // clamped at zero on underflow
	LastUpdatedAt int64
}

// ID returns the row identity.
func (d *PositionDebt) ID() string {
	return d.Position + "-" + d.Reserve + "-" + formatInt(int64(d.RateMode))
}

// ReserveAggregateKind distinguishes the two protocol-wide per-reserve totals.
type ReserveAggregateKind string

// Reserve aggregate kinds.
const (
	ReserveCollateral ReserveAggregateKind = "collateral"
	ReserveDebt       ReserveAggregateKind = "debt"
)

// ReserveAggregate is a protocol-wide running total of collateral or debt per
// reserve, maintained additively alongside ledger mutations.
type ReserveAggregate struct {
	Kind          ReserveAggregateKind
	Reserve       string
	Amount        decimal.Decimal
	LastUpdatedAt int64
}

// ID returns the aggregate identity, e.g. "protocol-debt-0xabc...".
func (a *ReserveAggregate) ID() string {
	return "protocol-" + string(a.Kind) + "-" + a.Reserve
}
