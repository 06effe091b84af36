package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/aggregate"
	"lending-risk-lab/internal/engine"
	"lending-risk-lab/internal/feed"
	"lending-risk-lab/internal/ledger"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/reserves"
	"lending-risk-lab/internal/risk"
	"lending-risk-lab/internal/storage"
	"lending-risk-lab/internal/storage/memory"
)

func main() {
	eventsFile := flag.String("events-file", "", "JSONL event file to replay (required)")
	strict := flag.Bool("strict", false, "Fail on ordering violations instead of sorting")
	position := flag.String("position", "", "Print risk history for one position after replay")
	jsonOut := flag.Bool("json", false, "Emit the summary as JSON on stdout")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *eventsFile == "" {
		logger.Fatal("--events-file is required")
	}

	if err := run(context.Background(), logger, *eventsFile, *strict, *position, *jsonOut); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, logger *log.Logger, eventsFile string, strict bool, position string, jsonOut bool) error {
	events, err := loadEvents(eventsFile)
	if err != nil {
		return err
	}
	logger.Printf("Loaded %d events from %s", len(events), eventsFile)

	if err := feed.ValidateOrdering(events); err != nil {
		if strict {
			return err
		}
		logger.Println("Events out of order, sorting by (block, logIndex)")
		feed.SortEvents(events)
	}

	positions := memory.NewPositionStore()
	collateral := memory.NewCollateralStore()
	debt := memory.NewDebtStore()
	posSnaps := memory.NewPositionSnapshotStore()
	protoMetrics := memory.NewProtocolMetricsStore()

	reg := registry.New(memory.NewTokenStore(), memory.NewOracleMappingStore(), memory.NewPriceSnapshotStore())
	eng := engine.New(engine.Config{
		Logger:       logger,
		Registry:     reg,
		Ledger:       ledger.New(positions, collateral, debt, memory.NewReserveAggregateStore(), reg),
		Risk:         risk.New(positions, collateral, debt, posSnaps, reg),
		Aggregator:   aggregate.New(memory.NewUserStore(), protoMetrics),
		Reserves:     reserves.New(memory.NewAssetConfigStore(), memory.NewConfigChangeStore(), reg),
		Positions:    positions,
		Transactions: memory.NewTransactionStore(),
		Executions:   memory.NewOrderExecutionStore(),
	})

	for _, ev := range events {
		if err := eng.Process(ctx, ev); err != nil {
			return err
		}
	}

	if err := printSummary(ctx, logger, protoMetrics, jsonOut); err != nil {
		return err
	}

	if position != "" {
		return printPositionHistory(ctx, positions, posSnaps, position)
	}
	return nil
}

func loadEvents(path string) ([]*feed.Event, error) {
	src, err := feed.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var events []*feed.Event
	for {
		ev, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}

// summary is the JSON shape of the protocol totals.
type summary struct {
	TotalUsers        int64           `json:"totalUsers"`
	TotalPositions    int64           `json:"totalPositions"`
	TotalActiveOrders int64           `json:"totalActiveOrders"`
	TotalVolumeUSD    decimal.Decimal `json:"totalVolumeUsd"`
}

func printSummary(ctx context.Context, logger *log.Logger, store storage.ProtocolMetricsStore, jsonOut bool) error {
	m, err := store.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Println("No protocol activity recorded")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load protocol metrics: %w", err)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(summary{
			TotalUsers:        m.TotalUsers,
			TotalPositions:    m.TotalPositions,
			TotalActiveOrders: m.TotalActiveOrders,
			TotalVolumeUSD:    m.TotalVolumeUSD,
		})
	}

	logger.Println("=== Protocol Summary ===")
	logger.Printf("Users:          %d", m.TotalUsers)
	logger.Printf("Positions:      %d", m.TotalPositions)
	logger.Printf("Active orders:  %d", m.TotalActiveOrders)
	logger.Printf("Traded volume:  $%s", m.TotalVolumeUSD.StringFixed(2))
	return nil
}

func printPositionHistory(ctx context.Context, positions storage.PositionStore, snaps storage.PositionSnapshotStore, address string) error {
	pos, err := positions.Get(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("position %s not tracked", address)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Position %s\n", pos.Address)
	fmt.Printf("  owner=%s nonce=%d risk=%s\n", pos.Owner, pos.Nonce, pos.RiskLevel)
	fmt.Printf("  collateral=$%s debt=$%s hf=%s\n",
		pos.TotalCollateralUSD.StringFixed(2), pos.TotalDebtUSD.StringFixed(2), pos.HealthFactor.StringFixed(4))
	if pos.TimeToLiquidation != nil {
		fmt.Printf("  time to liquidation: %ds\n", *pos.TimeToLiquidation)
	}

	history, err := snaps.GetByPosition(ctx, address)
	if err != nil {
		return err
	}
	fmt.Printf("  %d snapshots:\n", len(history))
	for _, s := range history {
		fmt.Printf("    block=%d ts=%d hf=%s equity=$%s\n",
			s.BlockNumber, s.Timestamp, s.HealthFactor.StringFixed(4), s.NetEquityUSD.StringFixed(2))
	}
	return nil
}
