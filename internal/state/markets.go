package state

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/dex"
	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/pool"
)

// impliedPairs returns the token pairs invariant 1 (spec.md §3) requires a
// market for: token_in↔weth, token_out↔weth, and (for sandbox orders only)
// token_in↔token_out directly.
func impliedPairs(o order.Order, weth common.Address) [][2]common.Address {
	pairs := [][2]common.Address{
		{o.TokenIn(), weth},
		{o.TokenOut(), weth},
	}
	if o.Variant() == order.VariantSandbox {
		pairs = append(pairs, [2]common.Address{o.TokenIn(), o.TokenOut()})
	}
	return pairs
}

// addMarketsForOrder implements spec.md §4.2's add_markets_for_order: for
// each implied pair, compute MarketId and, if absent, query every
// configured DEX for pools backing it. A pair with zero pools across every
// DEX is skipped, not an error — it is the simulator's can_execute that
// later fails gracefully for orders depending on it.
func (s *State) addMarketsForOrder(ctx context.Context, o order.Order, dexes []dex.DEX, client chain.Client) (MarketSet, error) {
	touched := make(MarketSet)

	for _, pair := range impliedPairs(o, s.weth) {
		a, b := pair[0], pair[1]
		if a == b {
			continue // e.g. a sandbox order trading directly against weth
		}
		touched.add(pool.MarketID(a, b))

		if s.markets.Has(a, b) {
			continue
		}

		var found []*pool.Pool
		for _, d := range dexes {
			pools, err := d.GetAllPoolsForPair(ctx, a, b, client)
			if err != nil {
				return nil, err
			}
			found = append(found, pools...)
		}
		if len(found) == 0 {
			continue // no pool anywhere: market skipped, per spec.md §4.2
		}

		for _, p := range found {
			s.markets.AddPool(a, b, p)
		}
	}

	return touched, nil
}

// RegisterOrder fetches order id's current on-chain body and inserts it
// into the active set with every implied market resolved, the same path
// ApplyOrderEvents's OrderPlaced/OrderUpdated branch uses. It exists for the
// loop driver's start-up replay (spec.md §4.7 steps 2-3), which discovers
// order ids by paging historical OrderPlaced logs rather than from a live
// block's event batch.
func (s *State) RegisterOrder(ctx context.Context, variant order.Variant, id common.Hash, dexes []dex.DEX, client chain.Client) (MarketSet, error) {
	o, markets, err := s.fetchAndResolveMarkets(ctx, variant, id, dexes, client)
	if err != nil {
		return nil, err
	}
	s.activeOrders[id] = o
	for m := range markets {
		s.addOrderToMarket(m, id)
	}
	return markets, nil
}

// fetchAndResolveMarkets fetches an order's current on-chain body (for
// OrderPlaced/OrderUpdated) and ensures every implied market is present.
func (s *State) fetchAndResolveMarkets(ctx context.Context, variant order.Variant, id common.Hash, dexes []dex.DEX, client chain.Client) (order.Order, MarketSet, error) {
	var o order.Order
	var err error
	switch variant {
	case order.VariantLimit:
		o, err = s.reader.FetchLimitOrder(ctx, client, s.limitBook, id)
	case order.VariantSandbox:
		o, err = s.reader.FetchSandboxOrder(ctx, client, s.sandboxBook, id)
	}
	if err != nil {
		return nil, nil, err
	}

	markets, err := s.addMarketsForOrder(ctx, o, dexes, client)
	if err != nil {
		return nil, nil, err
	}
	return o, markets, nil
}

// PoolEventKind distinguishes the two decoded pool-log shapes.
type PoolEventKind uint8

const (
	PoolEventV2Sync PoolEventKind = iota
	PoolEventV3Swap
)

// DecodedPoolLog is a pool log already ABI-decoded by the caller (decoding
// needs the event's concrete field layout, which events.Decode does not
// interpret — it only classifies by topic-0).
type DecodedPoolLog struct {
	Address common.Address
	Kind    PoolEventKind

	// V2Sync
	Reserve0, Reserve1 *big.Int

	// V3Swap
	SqrtPriceX96 *uint256.Int
	Liquidity    *big.Int
	Tick         int32
}

// ApplyPoolEvents patches every pool named by a decoded log in place and
// returns the set of markets that changed (spec.md §4.2's pool-event
// handling). Logs on addresses not in pool_to_market are silently ignored.
func (s *State) ApplyPoolEvents(logs []DecodedPoolLog) MarketSet {
	updated := make(MarketSet)
	for _, log := range logs {
		market, ok := s.markets.MarketForPool(log.Address)
		if !ok {
			continue
		}
		p, ok := market.Pools[log.Address]
		if !ok {
			continue
		}

		switch log.Kind {
		case PoolEventV2Sync:
			p.Reserve0 = new(big.Int).Set(log.Reserve0)
			p.Reserve1 = new(big.Int).Set(log.Reserve1)
		case PoolEventV3Swap:
			p.SqrtPriceX96 = new(uint256.Int).Set(log.SqrtPriceX96)
			p.Liquidity = new(big.Int).Set(log.Liquidity)
			p.Tick = log.Tick
		}
		updated.add(market.ID())
	}
	return updated
}
