package domain

import "github.com/shopspring/decimal"

// RiskLevel classifies a position by health factor band.
type RiskLevel string

// Risk levels, ordered from safest to closest to liquidation.
const (
	RiskLow      RiskLevel = "LOW"      // HF >= 2.0
	RiskMedium   RiskLevel = "MEDIUM"   // 1.3 <= HF < 2.0
	RiskHigh     RiskLevel = "HIGH"     // 1.1 <= HF < 1.3
	RiskCritical RiskLevel = "CRITICAL" // HF < 1.1
)

// HealthFactorNoDebt is the sentinel health factor for debt-free positions.
// It is a deliberate clamp, not a true infinity: downstream decimal arithmetic
// stays bounded across implementations.
var HealthFactorNoDebt = decimal.NewFromInt(999999)

// DebtPosition is a tradeable debt container created by the marketplace
// router. Identity is the position contract address. Created exactly once on
// CreateDebt, never deleted.
type DebtPosition struct {
	Address              string          // position contract address (lowercase hex), identity
	Owner                string          // current owner wallet address
	Nonce                int64           // increments by 1 on transfer, cancel, and sale execution
	TotalCollateralUSD   decimal.Decimal // aggregated from collateral rows at last evaluation
	TotalDebtUSD         decimal.Decimal // aggregated from debt rows at last evaluation
	HealthFactor         decimal.Decimal
	LiquidationThreshold decimal.Decimal // fixed at creation; not re-synced from reserve config
	MaxLTV               decimal.Decimal
	RiskLevel            RiskLevel
	TimeToLiquidation    *int64 // estimated seconds until liquidation; nil when not computable
	NetEquityUSD         decimal.Decimal // TotalCollateralUSD - TotalDebtUSD
	CreatedAt            int64
	LastUpdatedAt        int64
}

// PositionSnapshot is an immutable record of a position's risk state at one
// evaluation. One snapshot is appended per Evaluate call, unconditionally.
type PositionSnapshot struct {
	Position           string // position contract address
	HealthFactor       decimal.Decimal
	TotalCollateralUSD decimal.Decimal
	TotalDebtUSD       decimal.Decimal
	NetEquityUSD       decimal.Decimal
	Timestamp          int64
	BlockNumber        int64
}

// ID returns the snapshot identity.
func (s *PositionSnapshot) ID() string {
	return s.Position + "-" + formatInt(s.Timestamp)
}
