// Package simulator decides which active orders can be filled against the
// current pool state, mutates a cloned market set as it schedules each
// fill, and produces execution bundles for the tx manager (spec.md §4.4:
// "Simulator", relative share 12%).
package simulator

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/pool"
)

// satisfies reports whether a hop's own mid-price already clears the
// order's threshold on its own — the filter spec.md §4.4 step 2 describes:
// "ignoring pools whose current mid-price alone does not already satisfy
// the order".
type satisfiesFunc func(price float64) bool

// bestHopPrice returns the highest mid-price among m's pools that, taken
// alone, already satisfies the threshold, plus whether any pool qualified.
func bestHopPrice(m *pool.Market, tokenIn common.Address, satisfies satisfiesFunc) (float64, bool) {
	best := 0.0
	found := false
	for _, p := range m.Pools {
		price := p.Price(tokenIn)
		if !satisfies(price) {
			continue
		}
		if !found || price > best {
			best, found = price, true
		}
	}
	return best, found
}

// bestReachablePrice composes the best qualifying a->weth->b price (or the
// direct a->b price if either token is weth), per spec.md §4.3/§4.4's
// "best reachable ... price" wording, filtered per-hop by satisfies.
func bestReachablePrice(markets *pool.MarketSet, tokenIn, tokenOut, weth common.Address, satisfies satisfiesFunc) (float64, bool) {
	if tokenIn == weth || tokenOut == weth {
		m, ok := markets.Get(pool.MarketID(tokenIn, tokenOut))
		if !ok {
			return 0, false
		}
		return bestHopPrice(m, tokenIn, satisfies)
	}

	hop1, ok := markets.Get(pool.MarketID(tokenIn, weth))
	if !ok {
		return 0, false
	}
	hop2, ok := markets.Get(pool.MarketID(weth, tokenOut))
	if !ok {
		return 0, false
	}
	p1, ok1 := bestHopPrice(hop1, tokenIn, satisfies)
	if !ok1 {
		return 0, false
	}
	p2, ok2 := bestHopPrice(hop2, weth, satisfies)
	if !ok2 {
		return 0, false
	}
	return p1 * p2, true
}

// canExecute implements spec.md §4.4 step 2's three branches. The boundary
// is inclusive in both directions (DESIGN.md Open Question 3): a limit buy
// fires when the best reachable price is <= the order's price, a limit
// sell when it is >=, and a sandbox order when max(direct, routed) is >=
// its price.
func canExecute(markets *pool.MarketSet, o order.Order, weth common.Address) bool {
	switch v := o.(type) {
	case *order.LimitOrder:
		var satisfies satisfiesFunc
		if v.Buy {
			satisfies = func(price float64) bool { return price <= v.PriceVal }
		} else {
			satisfies = func(price float64) bool { return price >= v.PriceVal }
		}
		price, ok := bestReachablePrice(markets, o.TokenIn(), o.TokenOut(), weth, satisfies)
		return ok && satisfies(price)

	case *order.SandboxLimitOrder:
		satisfies := func(price float64) bool { return price >= v.PriceVal }

		best, found := 0.0, false
		if m, ok := markets.Get(pool.MarketID(o.TokenIn(), o.TokenOut())); ok {
			if direct, ok := bestHopPrice(m, o.TokenIn(), satisfies); ok {
				best, found = direct, true
			}
		}
		if routed, ok := bestReachablePrice(markets, o.TokenIn(), o.TokenOut(), weth, satisfies); ok && (!found || routed > best) {
			best, found = routed, true
		}
		return found && satisfies(best)

	default:
		return false
	}
}

// candidateOrders walks active_orders and returns those that pass
// can_execute against the cloned market set (spec.md §4.4 step 2).
func candidateOrders(orders map[common.Hash]order.Order, markets *pool.MarketSet, weth common.Address) []order.Order {
	var out []order.Order
	for _, o := range orders {
		if canExecute(markets, o, weth) {
			out = append(out, o)
		}
	}
	return out
}
