package feed

import (
	"context"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func ev(block, logIndex int64) *Event {
	return &Event{
		Type:        EventCancelOrders,
		BlockNumber: block,
		LogIndex:    logIndex,
		CancelOrders: &CancelOrders{
			Position: common.HexToAddress("0x01"),
		},
	}
}

func TestSortEvents(t *testing.T) {
	events := []*Event{ev(5, 2), ev(3, 9), ev(5, 0), ev(1, 1)}
	SortEvents(events)

	require.Equal(t, int64(1), events[0].BlockNumber)
	require.Equal(t, int64(3), events[1].BlockNumber)
	require.Equal(t, int64(5), events[2].BlockNumber)
	require.Equal(t, int64(0), events[2].LogIndex)
	require.Equal(t, int64(2), events[3].LogIndex)
}

func TestValidateOrdering(t *testing.T) {
	require.NoError(t, ValidateOrdering([]*Event{ev(1, 0), ev(1, 1), ev(2, 0)}))

	require.ErrorIs(t, ValidateOrdering([]*Event{ev(2, 0), ev(1, 0)}), ErrInvalidOrdering)
	require.ErrorIs(t, ValidateOrdering([]*Event{ev(1, 1), ev(1, 1)}), ErrInvalidOrdering)
	require.ErrorIs(t, ValidateOrdering([]*Event{ev(1, 3), ev(1, 2)}), ErrInvalidOrdering)
}

func TestEncodeDecodeEvent(t *testing.T) {
	in := &Event{
		Type:        EventBorrow,
		BlockNumber: 42,
		LogIndex:    7,
		TxHash:      common.HexToHash("0xbeef"),
		Timestamp:   1700000000,
		From:        common.HexToAddress("0x05"),
		Borrow: &Borrow{
			User:       common.HexToAddress("0x06"),
			OnBehalfOf: common.HexToAddress("0x07"),
			Reserve:    common.HexToAddress("0x08"),
			RateMode:   2,
			Amount:     big.NewInt(123456789),
		},
	}

	data, err := EncodeEvent(in)
	require.NoError(t, err)

	out, err := DecodeEvent(data)
	require.NoError(t, err)
	require.Equal(t, in.Type, out.Type)
	require.Equal(t, in.BlockNumber, out.BlockNumber)
	require.Equal(t, in.TxHash, out.TxHash)
	require.NotNil(t, out.Borrow)
	require.Equal(t, 2, out.Borrow.RateMode)
	require.Equal(t, 0, out.Borrow.Amount.Cmp(big.NewInt(123456789)))
}

func TestEncodeDecodeEvent_SaleValue(t *testing.T) {
	in := &Event{
		Type: EventFullSale,
		FullSale: &SaleExecution{
			Position: common.HexToAddress("0x09"),
			Buyer:    common.HexToAddress("0x0a"),
			Seller:   common.HexToAddress("0x0b"),
			NewNonce: 4,
			ValueUSD: decimal.RequireFromString("1234.56"),
		},
	}

	data, err := EncodeEvent(in)
	require.NoError(t, err)

	out, err := DecodeEvent(data)
	require.NoError(t, err)
	require.NotNil(t, out.FullSale)
	require.True(t, out.FullSale.ValueUSD.Equal(decimal.RequireFromString("1234.56")))
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"mystery","payload":{}}`))
	require.Error(t, err)
}

func TestSliceSource_DrainsSortedThenEOF(t *testing.T) {
	src := NewSliceSource([]*Event{ev(2, 0), ev(1, 0)})

	first, err := src.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), first.BlockNumber)

	_, err = src.Next(context.Background())
	require.NoError(t, err)

	_, err = src.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestFileSource_ReadsJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	var lines []byte
	for i := int64(0); i < 3; i++ {
		data, err := EncodeEvent(ev(10, i))
		require.NoError(t, err)
		lines = append(lines, data...)
		lines = append(lines, '\n')
	}
	require.NoError(t, os.WriteFile(path, lines, 0o644))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	defer src.Close()

	for i := int64(0); i < 3; i++ {
		got, err := src.Next(context.Background())
		require.NoError(t, err)
		require.Equal(t, i, got.LogIndex)
	}
	_, err = src.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}
