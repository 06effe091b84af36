// Package aggregate owns the singleton protocol metrics row and per-wallet
// user records. It is the only writer of both: dashboard consistency depends
// on every mutating path in the engine going through this component, since
// the totals are maintained additively and never rebuilt by re-scanning
// positions.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"lending-risk-lab/internal/domain"
	"lending-risk-lab/internal/storage"
)

// Aggregator maintains ProtocolMetrics and User bookkeeping.
type Aggregator struct {
	users   storage.UserStore
	metrics storage.ProtocolMetricsStore
}

// New creates an aggregator over the given stores.
func New(users storage.UserStore, metrics storage.ProtocolMetricsStore) *Aggregator {
	return &Aggregator{users: users, metrics: metrics}
}

// EnsureUser loads a user record, creating it on first sight. Creation bumps
// the protocol user count.
func (a *Aggregator) EnsureUser(ctx context.Context, address string, timestamp int64) (*domain.User, error) {
	u, err := a.users.Get(ctx, address)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load user %s: %w", address, err)
	}

	u = &domain.User{
		Address:           address,
		TotalVolumeTraded: decimal.Zero,
		CreatedAt:         timestamp,
		LastActiveAt:      timestamp,
	}
	if err := a.users.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("create user %s: %w", address, err)
	}

	if err := a.mutateMetrics(ctx, timestamp, func(m *domain.ProtocolMetrics) {
		m.TotalUsers++
	}); err != nil {
		return nil, err
	}
	return u, nil
}

// RecordPositionCreated bumps the protocol and owner position counts.
func (a *Aggregator) RecordPositionCreated(ctx context.Context, owner string, timestamp int64) error {
	u, err := a.EnsureUser(ctx, owner, timestamp)
	if err != nil {
		return err
	}
	u.TotalPositions++
	u.LastActiveAt = timestamp
	if err := a.users.Upsert(ctx, u); err != nil {
		return fmt.Errorf("save user %s: %w", owner, err)
	}

	return a.mutateMetrics(ctx, timestamp, func(m *domain.ProtocolMetrics) {
		m.TotalPositions++
	})
}

// RecordOwnershipTransfer moves one position between owners' counts. The
// previous owner's count clamps at zero when the transfer predates tracking.
func (a *Aggregator) RecordOwnershipTransfer(ctx context.Context, previousOwner, newOwner string, timestamp int64) error {
	prev, err := a.EnsureUser(ctx, previousOwner, timestamp)
	if err != nil {
		return err
	}
	if prev.TotalPositions > 0 {
		prev.TotalPositions--
	}
	prev.LastActiveAt = timestamp
	if err := a.users.Upsert(ctx, prev); err != nil {
		return fmt.Errorf("save user %s: %w", previousOwner, err)
	}

	next, err := a.EnsureUser(ctx, newOwner, timestamp)
	if err != nil {
		return err
	}
	next.TotalPositions++
	next.LastActiveAt = timestamp
	if err := a.users.Upsert(ctx, next); err != nil {
		return fmt.Errorf("save user %s: %w", newOwner, err)
	}

	return a.touchMetrics(ctx, timestamp)
}

// RecordOrdersCancelled retires one outstanding order. Order creation happens
// off-feed through signed messages, so the active-order count only ever
// decrements here, clamped at zero.
func (a *Aggregator) RecordOrdersCancelled(ctx context.Context, owner string, timestamp int64) error {
	u, err := a.EnsureUser(ctx, owner, timestamp)
	if err != nil {
		return err
	}
	u.LastActiveAt = timestamp
	if err := a.users.Upsert(ctx, u); err != nil {
		return fmt.Errorf("save user %s: %w", owner, err)
	}

	return a.mutateMetrics(ctx, timestamp, func(m *domain.ProtocolMetrics) {
		if m.TotalActiveOrders > 0 {
			m.TotalActiveOrders--
		}
	})
}

// RecordSaleExecuted books a filled order: volume accrues to the protocol
// total and to both counterparties, the seller's created-order and the
// buyer's executed-order counters advance, and one active order retires.
func (a *Aggregator) RecordSaleExecuted(ctx context.Context, buyer, seller string, valueUSD decimal.Decimal, timestamp int64) error {
	s, err := a.EnsureUser(ctx, seller, timestamp)
	if err != nil {
		return err
	}
	s.TotalOrdersCreated++
	s.TotalVolumeTraded = s.TotalVolumeTraded.Add(valueUSD)
	s.LastActiveAt = timestamp
	if err := a.users.Upsert(ctx, s); err != nil {
		return fmt.Errorf("save user %s: %w", seller, err)
	}

	b, err := a.EnsureUser(ctx, buyer, timestamp)
	if err != nil {
		return err
	}
	b.TotalOrdersExecuted++
	b.TotalVolumeTraded = b.TotalVolumeTraded.Add(valueUSD)
	b.LastActiveAt = timestamp
	if err := a.users.Upsert(ctx, b); err != nil {
		return fmt.Errorf("save user %s: %w", buyer, err)
	}

	return a.mutateMetrics(ctx, timestamp, func(m *domain.ProtocolMetrics) {
		m.TotalVolumeUSD = m.TotalVolumeUSD.Add(valueUSD)
		if m.TotalActiveOrders > 0 {
			m.TotalActiveOrders--
		}
	})
}

// touchMetrics stamps the metrics row without changing any counter.
func (a *Aggregator) touchMetrics(ctx context.Context, timestamp int64) error {
	return a.mutateMetrics(ctx, timestamp, func(*domain.ProtocolMetrics) {})
}

// mutateMetrics loads the singleton, applies fn, stamps and saves it. The row
// is created with zero counters on first use.
func (a *Aggregator) mutateMetrics(ctx context.Context, timestamp int64, fn func(*domain.ProtocolMetrics)) error {
	m, err := a.metrics.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		m = &domain.ProtocolMetrics{TotalVolumeUSD: decimal.Zero}
	} else if err != nil {
		return fmt.Errorf("load protocol metrics: %w", err)
	}

	fn(m)
	m.LastUpdatedAt = timestamp
	if err := a.metrics.Upsert(ctx, m); err != nil {
		return fmt.Errorf("save protocol metrics: %w", err)
	}
	return nil
}
