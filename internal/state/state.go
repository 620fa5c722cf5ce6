// Package state holds the executor's authoritative in-memory replica of
// active orders and markets (spec.md §4.2: "State machine", relative share
// 18%) and applies event batches to it.
//
// Per spec.md §9's design note, State itself is not safe for concurrent
// method calls — a single-owner Actor (actor.go) wraps it and is the only
// thing any other package talks to, so the same single-writer discipline
// the teacher's Engine.Start goroutine tree relies on applies here too.
package state

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/coexerr"
	"github.com/conveyorlabs/coex/internal/dex"
	"github.com/conveyorlabs/coex/internal/events"
	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/pool"
)

// MarketSet is the set of market ids an operation touched or produced.
type MarketSet map[common.Hash]struct{}

func (s MarketSet) add(id common.Hash) { s[id] = struct{}{} }

// Union merges other into s and returns s.
func (s MarketSet) Union(other MarketSet) MarketSet {
	for id := range other {
		s[id] = struct{}{}
	}
	return s
}

// State is the executor's in-memory replica (spec.md §3). Zero value is
// not usable — construct with New.
type State struct {
	activeOrders    map[common.Hash]order.Order
	pendingOrderIDs map[common.Hash]struct{}
	markets         *pool.MarketSet
	marketToOrders  map[common.Hash]map[common.Hash]struct{}

	limitBook   common.Address
	sandboxBook common.Address
	weth        common.Address

	reader BookReader
}

// New constructs an empty State bound to the two book addresses and the
// chain's WETH address, needed to classify events and compute implied
// markets.
func New(limitBook, sandboxBook, weth common.Address, reader BookReader) *State {
	return &State{
		activeOrders:    make(map[common.Hash]order.Order),
		pendingOrderIDs: make(map[common.Hash]struct{}),
		markets:         pool.NewMarketSet(),
		marketToOrders:  make(map[common.Hash]map[common.Hash]struct{}),
		limitBook:       limitBook,
		sandboxBook:     sandboxBook,
		weth:            weth,
		reader:          reader,
	}
}

// ActiveOrders returns the live order set. Callers must not mutate the
// returned map.
func (s *State) ActiveOrders() map[common.Hash]order.Order { return s.activeOrders }

// Markets returns the authoritative market set. Callers must not mutate it
// directly — clone it first (spec.md §5: "Cloning").
func (s *State) Markets() *pool.MarketSet { return s.markets }

// IsPending reports whether an order has an in-flight transaction.
func (s *State) IsPending(id common.Hash) bool {
	_, ok := s.pendingOrderIDs[id]
	return ok
}

// MarkPending records that id now has an in-flight transaction (spec.md
// §4.5, §5: "single-writer chain per order id").
func (s *State) MarkPending(id common.Hash) { s.pendingOrderIDs[id] = struct{}{} }

// ClearPending removes id from the pending set, called by the reaper once
// its transaction is confirmed.
func (s *State) ClearPending(id common.Hash) { delete(s.pendingOrderIDs, id) }

// OrdersForMarket returns the order ids recorded against a market.
func (s *State) OrdersForMarket(marketID common.Hash) []common.Hash {
	set := s.marketToOrders[marketID]
	ids := make([]common.Hash, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot is a deep-cloned, point-in-time view of the order and market
// state (spec.md §5: "Cloning" — the simulator mutates this clone while
// quoting routes and never leaks that mutation back into the authoritative
// State).
type Snapshot struct {
	Orders  map[common.Hash]order.Order
	Markets *pool.MarketSet
}

// Snapshot clones the current orders and markets for a simulator pass.
func (s *State) Snapshot() Snapshot {
	orders := make(map[common.Hash]order.Order, len(s.activeOrders))
	for id, o := range s.activeOrders {
		orders[id] = o
	}
	return Snapshot{
		Orders:  orders,
		Markets: s.markets.Clone(),
	}
}

// ApplyOrderEvents processes one block's order-book logs, in the order the
// caller supplies them — the loop driver is responsible for preserving the
// chain's original per-transaction ordering (spec.md §5). None of these
// seven events index their arguments (spec.md §6), so every id and field is
// decoded out of the log's Data, not its Topics.
func (s *State) ApplyOrderEvents(ctx context.Context, evts []events.OrderEvent, dexes []dex.DEX, client chain.Client) (MarketSet, error) {
	affected := make(MarketSet)

	for _, evt := range evts {
		variant, err := s.classifyEmitter(evt.Log.Address)
		if err != nil {
			return nil, err
		}

		switch evt.Kind {
		case events.OrderPlaced, events.OrderUpdated:
			ids, err := events.DecodeOrderIDs(evt.Log)
			if err != nil {
				return nil, coexerr.Decode(fmt.Sprintf("decode %s log", evt.Kind), err)
			}
			for _, id := range ids {
				markets, err := s.RegisterOrder(ctx, variant, id, dexes, client)
				if err != nil {
					return nil, err
				}
				for m := range markets {
					affected.add(m)
				}
			}

		case events.OrderCanceled, events.OrderFilled:
			ids, err := events.DecodeOrderIDs(evt.Log)
			if err != nil {
				return nil, coexerr.Decode(fmt.Sprintf("decode %s log", evt.Kind), err)
			}
			for _, id := range ids {
				s.removeOrder(id, affected)
			}

		case events.OrderPartialFilled:
			p, err := events.DecodePartialFill(evt.Log)
			if err != nil {
				return nil, coexerr.Decode("decode OrderPartialFilled log", err)
			}
			s.ApplyOrderPartialFilled(p.OrderID, p.AmountInRemaining, p.AmountOutRemaining, p.ExecutionCreditRemaining, p.FeeRemaining)

		case events.OrderRefreshed:
			r, err := events.DecodeRefresh(evt.Log)
			if err != nil {
				return nil, coexerr.Decode("decode OrderRefreshed log", err)
			}
			s.ApplyOrderRefreshed(r.OrderID, r.LastRefreshTimestamp, r.ExpirationTimestamp)

		case events.OrderExecutionCreditUpdated:
			c, err := events.DecodeExecutionCredit(evt.Log)
			if err != nil {
				return nil, coexerr.Decode("decode OrderExecutionCreditUpdated log", err)
			}
			s.ApplyOrderExecutionCreditUpdated(c.OrderID, c.ExecutionCreditRemaining)

		default:
			return nil, coexerr.Decode(fmt.Sprintf("unexpected order event kind %s in ApplyOrderEvents", evt.Kind), nil)
		}
	}

	return affected, nil
}

// ApplyOrderPartialFilled patches the order named by id in place — the fix
// for spec.md §9's Open Question (the on-chain source's OrderPartialFilled
// handler is a documented no-op).
func (s *State) ApplyOrderPartialFilled(id common.Hash, amountInRemaining, amountOutRemaining, executionCreditRemaining, feeRemaining *big.Int) {
	o, ok := s.activeOrders[id]
	if !ok {
		return // order already left active_orders; nothing to patch
	}
	switch v := o.(type) {
	case *order.LimitOrder:
		v.ApplyPartialFill(amountInRemaining, amountOutRemaining, executionCreditRemaining, feeRemaining)
	case *order.SandboxLimitOrder:
		v.ApplyPartialFill(amountInRemaining, amountOutRemaining, executionCreditRemaining, feeRemaining)
	}
}

// ApplyOrderRefreshed patches refresh timestamps in place.
func (s *State) ApplyOrderRefreshed(id common.Hash, lastRefresh, expiration uint32) {
	o, ok := s.activeOrders[id]
	if !ok {
		return
	}
	switch v := o.(type) {
	case *order.LimitOrder:
		v.ApplyRefresh(lastRefresh, expiration)
	case *order.SandboxLimitOrder:
		v.ApplyRefresh(lastRefresh, expiration)
	}
}

// ApplyOrderExecutionCreditUpdated patches execution credit in place.
func (s *State) ApplyOrderExecutionCreditUpdated(id common.Hash, credit *big.Int) {
	o, ok := s.activeOrders[id]
	if !ok {
		return
	}
	switch v := o.(type) {
	case *order.LimitOrder:
		v.ApplyExecutionCreditUpdate(credit)
	case *order.SandboxLimitOrder:
		v.ApplyExecutionCreditUpdate(credit)
	}
}

func (s *State) removeOrder(id common.Hash, affected MarketSet) {
	if _, ok := s.activeOrders[id]; !ok {
		return
	}
	for marketID, ids := range s.marketToOrders {
		if _, present := ids[id]; present {
			delete(ids, id)
			if affected != nil {
				affected.add(marketID)
			}
		}
	}
	delete(s.activeOrders, id)
	delete(s.pendingOrderIDs, id)
}

func (s *State) addOrderToMarket(marketID, orderID common.Hash) {
	set, ok := s.marketToOrders[marketID]
	if !ok {
		set = make(map[common.Hash]struct{})
		s.marketToOrders[marketID] = set
	}
	set[orderID] = struct{}{}
}

// classifyEmitter maps a log's emitting contract to an order variant per
// spec.md §4.2: "Any other address is treated as fatal; do not guess."
func (s *State) classifyEmitter(addr common.Address) (order.Variant, error) {
	switch addr {
	case s.sandboxBook:
		return order.VariantSandbox, nil
	case s.limitBook:
		return order.VariantLimit, nil
	default:
		return 0, coexerr.Provider(fmt.Sprintf("order event from unrecognized book address %s", addr), nil)
	}
}
