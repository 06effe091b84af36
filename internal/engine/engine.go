// Package engine dispatches feed events to the registry, ledger, reserves
// manager, risk evaluator, and aggregator. Handlers run strictly sequentially
// in (blockNumber, logIndex) order; event-level anomalies are dropped or
// clamped and logged, never returned. Only storage failures escape Process.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/aggregate"
	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/feed"
	"lending-risk-lab/internal/ledger"
	"lending-risk-lab/internal/observability"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/reserves"
	"lending-risk-lab/internal/risk"
	"lending-risk-lab/internal/storage"
)

// Defaults stamped on new positions. The threshold stays fixed for the
// position's lifetime; configurator changes do not re-sync it.
var (
	defaultLiquidationThreshold = decimal.RequireFromString("0.8")
	defaultMaxLTV               = decimal.RequireFromString("0.75")
)

// Drop reasons used in logs and metrics.
const (
	dropOutOfOrder        = "out_of_order"
	dropUnknownOracle     = "unknown_oracle"
	dropNonPositivePrice  = "non_positive_price"
	dropUnknownPosition   = "unknown_position"
	dropDuplicatePosition = "duplicate_position"
	dropBadRateMode       = "bad_rate_mode"
	dropMissingPayload    = "missing_payload"
)

// Engine is the sequential event processor.
type Engine struct {
	logger       *log.Logger
	registry     *registry.Registry
	ledger       *ledger.Ledger
	risk         *risk.Evaluator
	aggregator   *aggregate.Aggregator
	reserves     *reserves.Manager
	positions    storage.PositionStore
	transactions storage.TransactionStore
	executions   storage.OrderExecutionStore
	metrics      *observability.Metrics

	started      bool
	lastBlock    int64
	lastLogIndex int64

	// last gauged risk level per position, for the at-risk gauge
	riskLevels map[string]domain.RiskLevel
}

// Config carries the engine's collaborators.
type Config struct {
	Logger       *log.Logger
	Registry     *registry.Registry
	Ledger       *ledger.Ledger
	Risk         *risk.Evaluator
	Aggregator   *aggregate.Aggregator
	Reserves     *reserves.Manager
	Positions    storage.PositionStore
	Transactions storage.TransactionStore
	Executions   storage.OrderExecutionStore
	Metrics      *observability.Metrics
}

// New creates an engine from its collaborators.
func New(cfg Config) *Engine {
	return &Engine{
		logger:       cfg.Logger,
		registry:     cfg.Registry,
		ledger:       cfg.Ledger,
		risk:         cfg.Risk,
		aggregator:   cfg.Aggregator,
		reserves:     cfg.Reserves,
		positions:    cfg.Positions,
		transactions: cfg.Transactions,
		executions:   cfg.Executions,
		metrics:      cfg.Metrics,
		riskLevels:   make(map[string]domain.RiskLevel),
	}
}

// Run drains a source until EOF or context cancellation.
func (e *Engine) Run(ctx context.Context, src feed.Source) error {
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if err := e.Process(ctx, ev); err != nil {
			return err
		}
	}
}

// Process handles one event. Events that regress the (blockNumber, logIndex)
// cursor are dropped: the feed contract is canonical chain order, and a
// regression means replayed or reordered delivery.
func (e *Engine) Process(ctx context.Context, ev *feed.Event) error {
	if e.started && compare(ev.BlockNumber, ev.LogIndex, e.lastBlock, e.lastLogIndex) <= 0 {
		e.drop(ev, dropOutOfOrder)
		return nil
	}
	e.started = true
	e.lastBlock = ev.BlockNumber
	e.lastLogIndex = ev.LogIndex

	start := time.Now()
	err := e.dispatch(ctx, ev)
	if err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.EventsProcessed.WithLabelValues(string(ev.Type)).Inc()
		e.metrics.HandlerLatency.WithLabelValues(string(ev.Type)).Observe(time.Since(start).Seconds())
		e.metrics.HighestBlockSeen.Set(float64(ev.BlockNumber))
		e.metrics.LastEventTimestamp.Set(float64(ev.Timestamp))
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, ev *feed.Event) error {
	switch ev.Type {
	case feed.EventPriceTick:
		return e.handlePriceTick(ctx, ev)
	case feed.EventOracleRemap:
		return e.handleOracleRemap(ctx, ev)
	case feed.EventCreateDebt:
		return e.handleCreateDebt(ctx, ev)
	case feed.EventTransferOwnership:
		return e.handleTransferOwnership(ctx, ev)
	case feed.EventCancelOrders:
		return e.handleCancelOrders(ctx, ev)
	case feed.EventSupply:
		return e.handleSupply(ctx, ev)
	case feed.EventBorrow:
		return e.handleBorrow(ctx, ev)
	case feed.EventRepay:
		return e.handleRepay(ctx, ev)
	case feed.EventWithdraw:
		return e.handleWithdraw(ctx, ev)
	case feed.EventFullSale:
		return e.handleSale(ctx, ev, ev.FullSale, domain.StrategyFullCleanup)
	case feed.EventPartialSale:
		return e.handleSale(ctx, ev, ev.PartialSale, domain.StrategyStrategic)
	case feed.EventReserveConfig:
		return e.handleReserveConfig(ctx, ev)
	default:
		e.drop(ev, dropMissingPayload)
		return nil
	}
}

func (e *Engine) handlePriceTick(ctx context.Context, ev *feed.Event) error {
	p := ev.PriceTick
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}

	result, err := e.registry.IngestPriceTick(ctx, feed.AddrKey(p.Oracle), p.RawPrice, ev.Timestamp, ev.BlockNumber)
	if err != nil {
		return err
	}
	switch result {
	case registry.TickUnknownOracle:
		e.drop(ev, dropUnknownOracle)
	case registry.TickNonPositive:
		e.drop(ev, dropNonPositivePrice)
	case registry.TickApplied:
		if e.metrics != nil {
			e.metrics.PriceTicksApplied.Inc()
			e.metrics.PriceSnapshotsSize.Inc()
		}
	}
	return nil
}

func (e *Engine) handleOracleRemap(ctx context.Context, ev *feed.Event) error {
	p := ev.OracleRemap
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	return e.registry.UpdateMapping(ctx, feed.AddrKey(p.Asset), feed.AddrKey(p.Oracle), ev.Timestamp)
}

func (e *Engine) handleCreateDebt(ctx context.Context, ev *feed.Event) error {
	p := ev.CreateDebt
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	position := feed.AddrKey(p.Position)
	owner := feed.AddrKey(p.Owner)

	if _, err := e.positions.Get(ctx, position); err == nil {
		// Positions are created exactly once.
		e.drop(ev, dropDuplicatePosition)
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load position %s: %w", position, err)
	}

	pos := &domain.DebtPosition{
		Address:              position,
		Owner:                owner,
		HealthFactor:         domain.HealthFactorNoDebt,
		LiquidationThreshold: defaultLiquidationThreshold,
		MaxLTV:               defaultMaxLTV,
		RiskLevel:            domain.RiskLow,
		TotalCollateralUSD:   decimal.Zero,
		TotalDebtUSD:         decimal.Zero,
		NetEquityUSD:         decimal.Zero,
		CreatedAt:            ev.Timestamp,
		LastUpdatedAt:        ev.Timestamp,
	}
	if err := e.positions.Upsert(ctx, pos); err != nil {
		return fmt.Errorf("create position %s: %w", position, err)
	}

	if err := e.aggregator.RecordPositionCreated(ctx, owner, ev.Timestamp); err != nil {
		return err
	}
	if err := e.recordTransaction(ctx, ev, position); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.PositionsCreated.Inc()
	}
	return e.evaluate(ctx, position, ev)
}

func (e *Engine) handleTransferOwnership(ctx context.Context, ev *feed.Event) error {
	p := ev.TransferOwnership
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	position := feed.AddrKey(p.Position)
	newOwner := feed.AddrKey(p.NewOwner)

	pos, err := e.positions.Get(ctx, position)
	if errors.Is(err, storage.ErrNotFound) {
		e.drop(ev, dropUnknownPosition)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load position %s: %w", position, err)
	}

	previousOwner := pos.Owner
	pos.Owner = newOwner
	pos.Nonce++
	pos.LastUpdatedAt = ev.Timestamp
	if err := e.positions.Upsert(ctx, pos); err != nil {
		return fmt.Errorf("save position %s: %w", position, err)
	}

	if err := e.aggregator.RecordOwnershipTransfer(ctx, previousOwner, newOwner, ev.Timestamp); err != nil {
		return err
	}
	return e.recordTransaction(ctx, ev, position)
}

func (e *Engine) handleCancelOrders(ctx context.Context, ev *feed.Event) error {
	p := ev.CancelOrders
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	position := feed.AddrKey(p.Position)

	pos, err := e.positions.Get(ctx, position)
	if errors.Is(err, storage.ErrNotFound) {
		e.drop(ev, dropUnknownPosition)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load position %s: %w", position, err)
	}

	pos.Nonce++
	pos.LastUpdatedAt = ev.Timestamp
	if err := e.positions.Upsert(ctx, pos); err != nil {
		return fmt.Errorf("save position %s: %w", position, err)
	}

	if err := e.aggregator.RecordOrdersCancelled(ctx, pos.Owner, ev.Timestamp); err != nil {
		return err
	}
	return e.recordTransaction(ctx, ev, position)
}

func (e *Engine) handleSupply(ctx context.Context, ev *feed.Event) error {
	p := ev.Supply
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	position := feed.AddrKey(p.OnBehalfOf)

	applied, err := e.ledger.ApplySupply(ctx, position, feed.AddrKey(p.Reserve), p.Amount, ev.Timestamp)
	if err != nil {
		return err
	}
	if !applied {
		e.drop(ev, dropUnknownPosition)
		return nil
	}
	return e.evaluate(ctx, position, ev)
}

func (e *Engine) handleBorrow(ctx context.Context, ev *feed.Event) error {
	p := ev.Borrow
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	mode := domain.RateMode(p.RateMode)
	if mode != domain.RateModeStable && mode != domain.RateModeVariable {
		e.drop(ev, dropBadRateMode)
		return nil
	}
	position := feed.AddrKey(p.OnBehalfOf)

	applied, err := e.ledger.ApplyBorrow(ctx, position, feed.AddrKey(p.Reserve), mode, p.Amount, ev.Timestamp)
	if err != nil {
		return err
	}
	if !applied {
		e.drop(ev, dropUnknownPosition)
		return nil
	}
	return e.evaluate(ctx, position, ev)
}

func (e *Engine) handleRepay(ctx context.Context, ev *feed.Event) error {
	p := ev.Repay
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	position := feed.AddrKey(p.User)

	_, applied, err := e.ledger.ApplyRepay(ctx, position, feed.AddrKey(p.Reserve), p.Amount, ev.Timestamp)
	if err != nil {
		return err
	}
	if !applied {
		e.drop(ev, dropUnknownPosition)
		return nil
	}
	return e.evaluate(ctx, position, ev)
}

func (e *Engine) handleWithdraw(ctx context.Context, ev *feed.Event) error {
	p := ev.Withdraw
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	position := feed.AddrKey(p.User)

	applied, err := e.ledger.ApplyWithdraw(ctx, position, feed.AddrKey(p.Reserve), p.Amount, ev.Timestamp)
	if err != nil {
		return err
	}
	if !applied {
		e.drop(ev, dropUnknownPosition)
		return nil
	}
	return e.evaluate(ctx, position, ev)
}

func (e *Engine) handleSale(ctx context.Context, ev *feed.Event, p *feed.SaleExecution, strategy domain.ExecutionStrategy) error {
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	position := feed.AddrKey(p.Position)
	buyer := feed.AddrKey(p.Buyer)
	seller := feed.AddrKey(p.Seller)

	pos, err := e.positions.Get(ctx, position)
	if errors.Is(err, storage.ErrNotFound) {
		e.drop(ev, dropUnknownPosition)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load position %s: %w", position, err)
	}

	if p.NewNonce != pos.Nonce+1 && e.logger != nil {
		e.logger.Printf("sale nonce gap on %s: have %d, event says %d", position, pos.Nonce, p.NewNonce)
	}
	pos.Nonce = p.NewNonce
	previousOwner := pos.Owner
	if strategy == domain.StrategyFullCleanup {
		pos.Owner = buyer
	}
	pos.LastUpdatedAt = ev.Timestamp
	if err := e.positions.Upsert(ctx, pos); err != nil {
		return fmt.Errorf("save position %s: %w", position, err)
	}

	exec := &domain.OrderExecution{
		TxHash:      ev.TxHash.Hex(),
		Position:    position,
		Buyer:       buyer,
		Seller:      seller,
		ValueUSD:    p.ValueUSD,
		Strategy:    strategy,
		BlockNumber: ev.BlockNumber,
		Timestamp:   ev.Timestamp,
	}
	if err := e.executions.Upsert(ctx, exec); err != nil {
		return fmt.Errorf("record execution %s: %w", ev.TxHash.Hex(), err)
	}

	if err := e.aggregator.RecordSaleExecuted(ctx, buyer, seller, p.ValueUSD, ev.Timestamp); err != nil {
		return err
	}
	if strategy == domain.StrategyFullCleanup {
		if err := e.aggregator.RecordOwnershipTransfer(ctx, previousOwner, buyer, ev.Timestamp); err != nil {
			return err
		}
	}
	if e.metrics != nil {
		e.metrics.SalesExecuted.WithLabelValues(string(strategy)).Inc()
	}
	return e.recordTransaction(ctx, ev, position)
}

func (e *Engine) handleReserveConfig(ctx context.Context, ev *feed.Event) error {
	p := ev.ReserveConfig
	if p == nil {
		e.drop(ev, dropMissingPayload)
		return nil
	}
	return e.reserves.Apply(ctx, p, ev.BlockNumber, ev.LogIndex, ev.Timestamp, ev.TxHash.Hex())
}

// evaluate refreshes a position's risk state after a balance change.
func (e *Engine) evaluate(ctx context.Context, position string, ev *feed.Event) error {
	if err := e.risk.Evaluate(ctx, position, ev.Timestamp, ev.BlockNumber); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.RiskEvaluations.Inc()
		e.metrics.SnapshotsAppended.Inc()
		if pos, err := e.positions.Get(ctx, position); err == nil {
			prev, seen := e.riskLevels[position]
			if !seen || prev != pos.RiskLevel {
				if seen {
					e.metrics.PositionsAtRisk.WithLabelValues(string(prev)).Dec()
				}
				e.metrics.PositionsAtRisk.WithLabelValues(string(pos.RiskLevel)).Inc()
				e.riskLevels[position] = pos.RiskLevel
			}
		}
	}
	return nil
}

// recordTransaction writes the per-event provenance row.
func (e *Engine) recordTransaction(ctx context.Context, ev *feed.Event, to string) error {
	tx := &domain.Transaction{
		Hash:        ev.TxHash.Hex(),
		BlockNumber: ev.BlockNumber,
		Timestamp:   ev.Timestamp,
		From:        feed.AddrKey(ev.From),
		To:          to,
	}
	if err := e.transactions.Upsert(ctx, tx); err != nil {
		return fmt.Errorf("record transaction %s: %w", tx.Hash, err)
	}
	return nil
}

func (e *Engine) drop(ev *feed.Event, reason string) {
	if e.logger != nil {
		e.logger.Printf("dropped %s at block %d log %d: %s", ev.Type, ev.BlockNumber, ev.LogIndex, reason)
	}
	if e.metrics != nil {
		e.metrics.EventsDropped.WithLabelValues(string(ev.Type), reason).Inc()
	}
}

func compare(aBlock, aLog, bBlock, bLog int64) int {
	if aBlock != bBlock {
		if aBlock < bBlock {
			return -1
		}
		return 1
	}
	if aLog != bLog {
		if aLog < bLog {
			return -1
		}
		return 1
	}
	return 0
}
