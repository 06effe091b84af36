package feed

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// wireEvent is the JSON envelope used by the websocket and file sources.
// Payload shape depends on Type; addresses and hashes are 0x-prefixed hex,
// amounts are JSON integers of arbitrary precision.
type wireEvent struct {
	Type        EventType       `json:"type"`
	BlockNumber int64           `json:"blockNumber"`
	LogIndex    int64           `json:"logIndex"`
	TxHash      common.Hash     `json:"txHash"`
	Timestamp   int64           `json:"timestamp"`
	From        common.Address  `json:"from"`
	Payload     json.RawMessage `json:"payload"`
}

// DecodeEvent parses one JSON-encoded event.
func DecodeEvent(data []byte) (*Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	ev := &Event{
		Type:        w.Type,
		BlockNumber: w.BlockNumber,
		LogIndex:    w.LogIndex,
		TxHash:      w.TxHash,
		Timestamp:   w.Timestamp,
		From:        w.From,
	}

	var payload any
	switch w.Type {
	case EventPriceTick:
		ev.PriceTick = &PriceTick{}
		payload = ev.PriceTick
	case EventOracleRemap:
		ev.OracleRemap = &OracleRemap{}
		payload = ev.OracleRemap
	case EventCreateDebt:
		ev.CreateDebt = &CreateDebt{}
		payload = ev.CreateDebt
	case EventTransferOwnership:
		ev.TransferOwnership = &TransferOwnership{}
		payload = ev.TransferOwnership
	case EventCancelOrders:
		ev.CancelOrders = &CancelOrders{}
		payload = ev.CancelOrders
	case EventSupply:
		ev.Supply = &Supply{}
		payload = ev.Supply
	case EventBorrow:
		ev.Borrow = &Borrow{}
		payload = ev.Borrow
	case EventRepay:
		ev.Repay = &Repay{}
		payload = ev.Repay
	case EventWithdraw:
		ev.Withdraw = &Withdraw{}
		payload = ev.Withdraw
	case EventFullSale:
		ev.FullSale = &SaleExecution{}
		payload = ev.FullSale
	case EventPartialSale:
		ev.PartialSale = &SaleExecution{}
		payload = ev.PartialSale
	case EventReserveConfig:
		ev.ReserveConfig = &ReserveConfig{}
		payload = ev.ReserveConfig
	default:
		return nil, fmt.Errorf("decode event: unknown type %q", w.Type)
	}

	if err := json.Unmarshal(w.Payload, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", w.Type, err)
	}
	return ev, nil
}

// EncodeEvent serializes an event into the wire envelope.
func EncodeEvent(ev *Event) ([]byte, error) {
	var payload any
	switch ev.Type {
	case EventPriceTick:
		payload = ev.PriceTick
	case EventOracleRemap:
		payload = ev.OracleRemap
	case EventCreateDebt:
		payload = ev.CreateDebt
	case EventTransferOwnership:
		payload = ev.TransferOwnership
	case EventCancelOrders:
		payload = ev.CancelOrders
	case EventSupply:
		payload = ev.Supply
	case EventBorrow:
		payload = ev.Borrow
	case EventRepay:
		payload = ev.Repay
	case EventWithdraw:
		payload = ev.Withdraw
	case EventFullSale:
		payload = ev.FullSale
	case EventPartialSale:
		payload = ev.PartialSale
	case EventReserveConfig:
		payload = ev.ReserveConfig
	default:
		return nil, fmt.Errorf("encode event: unknown type %q", ev.Type)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.Type, err)
	}

	return json.Marshal(wireEvent{
		Type:        ev.Type,
		BlockNumber: ev.BlockNumber,
		LogIndex:    ev.LogIndex,
		TxHash:      ev.TxHash,
		Timestamp:   ev.Timestamp,
		From:        ev.From,
		Payload:     raw,
	})
}
