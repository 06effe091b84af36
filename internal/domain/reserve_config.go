package domain

import "github.com/shopspring/decimal"

// AssetConfiguration mirrors the pool configurator's per-reserve parameters.
// Identity is the asset address. Ratios arrive in basis points and are stored
// as 0-1 decimals. Consumed for dashboards only; position liquidation
// thresholds are fixed at position creation and not re-synced from here.
type AssetConfiguration struct {
	Asset                string // asset contract address (lowercase hex), identity
	Symbol               string
	LTV                  decimal.Decimal
	LiquidationThreshold decimal.Decimal
	LiquidationBonus     decimal.Decimal // 1.0 means no bonus

	ATokenAddress        string
	StableDebtToken      string
	VariableDebtToken    string
	InterestRateStrategy string

	BorrowingEnabled           bool
	StableRateBorrowingEnabled bool
	FlashLoanEnabled           bool
	BorrowableInIsolation      bool
	IsActive                   bool
	IsFrozen                   bool
	IsPaused                   bool

	BorrowCap              int64
	SupplyCap              int64
	DebtCeiling            int64
	ReserveFactor          int64
	LiquidationProtocolFee int64
	UnbackedMintCap        int64
	EModeCategory          int

	InitializedAt int64
	LastUpdatedAt int64
}

// AssetConfigurationChange is an append-only history row recorded for every
// configuration event. Identity is "<asset>-<block>-<logIndex>".
type AssetConfigurationChange struct {
	Asset       string
	EventType   string // e.g. "CollateralConfigurationChanged", "BorrowCapChanged"
	Detail      string // human-readable summary of the changed values
	BlockNumber int64
	LogIndex    int64
	Timestamp   int64
	TxHash      string
}

// ID returns the history row identity.
func (c *AssetConfigurationChange) ID() string {
	return c.Asset + "-" + formatInt(c.BlockNumber) + "-" + formatInt(c.LogIndex)
}
