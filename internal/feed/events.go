// Package feed defines the typed event stream the engine consumes. The
// transport delivers events in canonical chain order (blockNumber, logIndex);
// ordering helpers in this package validate that contract.
package feed

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// AddrKey returns the canonical lowercase hex form of an address, used as
// entity identity throughout the stores.
func AddrKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// EventType identifies the payload carried by an Event.
type EventType string

// Event types.
const (
	EventPriceTick         EventType = "price_tick"
	EventOracleRemap       EventType = "oracle_remap"
	EventCreateDebt        EventType = "create_debt"
	EventTransferOwnership EventType = "transfer_ownership"
	EventCancelOrders      EventType = "cancel_orders"
	EventSupply            EventType = "supply"
	EventBorrow            EventType = "borrow"
	EventRepay             EventType = "repay"
	EventWithdraw          EventType = "withdraw"
	EventFullSale          EventType = "full_sale"
	EventPartialSale       EventType = "partial_sale"
	EventReserveConfig     EventType = "reserve_config"
)

// Event is the envelope for one chain event. Exactly one payload pointer is
// non-nil, matching Type.
type Event struct {
	Type        EventType
	BlockNumber int64
	LogIndex    int64
	TxHash      common.Hash
	Timestamp   int64          // block timestamp, Unix seconds
	From        common.Address // transaction sender

	PriceTick         *PriceTick
	OracleRemap       *OracleRemap
	CreateDebt        *CreateDebt
	TransferOwnership *TransferOwnership
	CancelOrders      *CancelOrders
	Supply            *Supply
	Borrow            *Borrow
	Repay             *Repay
	Withdraw          *Withdraw
	FullSale          *SaleExecution
	PartialSale       *SaleExecution
	ReserveConfig     *ReserveConfig
}

// PriceTick is a Chainlink-style AnswerUpdated: the oracle aggregator address
// and the new answer as a fixed-point integer with 8 implied decimals.
type PriceTick struct {
	Oracle   common.Address
	RawPrice *big.Int
}

// OracleRemap is the Aave oracle's AssetSourceUpdated: an asset is re-pointed
// to a new price source.
type OracleRemap struct {
	Asset  common.Address
	Oracle common.Address
}

// CreateDebt announces a new debt position contract and its first owner.
type CreateDebt struct {
	Owner    common.Address
	Position common.Address
}

// TransferOwnership reassigns a position to a new owner off-market.
type TransferOwnership struct {
	Position common.Address
	NewOwner common.Address
}

// CancelOrders invalidates all outstanding signed orders for a position by
// bumping its nonce.
type CancelOrders struct {
	Position common.Address
}

// Supply adds collateral to the pool on behalf of a position.
type Supply struct {
	User       common.Address
	OnBehalfOf common.Address // position address when the supply targets a tracked position
	Reserve    common.Address
	Amount     *big.Int // token-native units
}

// Borrow draws debt against a position in one rate mode.
type Borrow struct {
	User       common.Address
	OnBehalfOf common.Address
	Reserve    common.Address
	RateMode   int // 1 stable, 2 variable
	Amount     *big.Int
}

// Repay pays down debt for a position. The pool event does not say which rate
// mode was repaid; the ledger allocates across tranches.
type Repay struct {
	User    common.Address // position address for tracked positions
	Repayer common.Address
	Reserve common.Address
	Amount  *big.Int
}

// Withdraw removes collateral from a position.
type Withdraw struct {
	User    common.Address // position address for tracked positions
	To      common.Address
	Reserve common.Address
	Amount  *big.Int
}

// SaleExecution is a completed full or partial sale order on the marketplace.
// NewNonce is the position nonce after execution (previous nonce + 1).
type SaleExecution struct {
	Position common.Address
	Buyer    common.Address
	Seller   common.Address
	NewNonce int64
	ValueUSD decimal.Decimal
}

// ReserveConfigKind discriminates pool-configurator sub-events.
type ReserveConfigKind string

// Reserve configuration sub-events.
const (
	ConfigReserveInitialized ReserveConfigKind = "reserve_initialized"
	ConfigCollateralChanged  ReserveConfigKind = "collateral_configuration_changed"
	ConfigFlagChanged        ReserveConfigKind = "flag_changed"
	ConfigCapChanged         ReserveConfigKind = "cap_changed"
	ConfigEModeChanged       ReserveConfigKind = "emode_category_changed"
)

// Reserve flags toggled by ConfigFlagChanged.
const (
	FlagBorrowing             = "borrowing"
	FlagStableRateBorrowing   = "stable_rate_borrowing"
	FlagFlashLoaning          = "flash_loaning"
	FlagActive                = "active"
	FlagFrozen                = "frozen"
	FlagPaused                = "paused"
	FlagBorrowableInIsolation = "borrowable_in_isolation"
)

// Caps adjusted by ConfigCapChanged.
const (
	CapBorrow                 = "borrow"
	CapSupply                 = "supply"
	CapDebtCeiling            = "debt_ceiling"
	CapReserveFactor          = "reserve_factor"
	CapLiquidationProtocolFee = "liquidation_protocol_fee"
	CapUnbackedMintCap        = "unbacked_mint_cap"
)

// ReserveConfig is a pool-configurator event for one asset. Which fields are
// meaningful depends on Kind.
type ReserveConfig struct {
	Kind  ReserveConfigKind
	Asset common.Address

	// ConfigReserveInitialized
	AToken               common.Address
	StableDebtToken      common.Address
	VariableDebtToken    common.Address
	InterestRateStrategy common.Address

	// ConfigCollateralChanged, in basis points
	LTVBps                  int64
	LiquidationThresholdBps int64
	LiquidationBonusBps     int64

	// ConfigFlagChanged
	Flag    string
	Enabled bool

	// ConfigCapChanged
	Cap   string
	Value int64

	// ConfigEModeChanged
	EModeCategory int
}
