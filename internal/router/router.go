// Package router finds the best swap path across one or more markets and
// commits the chosen path's effect on pool state (spec.md §4.3: "Router",
// relative share 12%).
package router

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/coexerr"
	"github.com/conveyorlabs/coex/internal/pool"
)

// Hop is one resolved leg of a route: which pool was chosen, what token
// entered it, and the amounts on either side. PoolAddr/MarketID (rather
// than a live *pool.Pool) let Route be replayed against a different
// MarketSet clone than the one it was found on (spec.md §4.3:
// "find_best_weth_exit_from_route ... replays the route on a clone").
type Hop struct {
	MarketID  common.Hash
	PoolAddr  common.Address
	TokenIn   common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}

// Route is the result of find_best_route_across_markets.
type Route struct {
	Hops []Hop
}

// FinalAmountOut is the amount the last hop produced, 0 for an empty route.
func (r Route) FinalAmountOut() *big.Int {
	if len(r.Hops) == 0 {
		return big.NewInt(0)
	}
	return r.Hops[len(r.Hops)-1].AmountOut
}

// FirstPoolAddr returns the address of the route's first hop's pool, used
// by both simulators' grouping policy ("group while the route's first pool
// is the same" — spec.md §4.4).
func (r Route) FirstPoolAddr() (common.Address, bool) {
	if len(r.Hops) == 0 {
		return common.Address{}, false
	}
	return r.Hops[0].PoolAddr, true
}

// quoterABI packs Uniswap-style quoteExactInputSingle calls against a
// configured per-DEX quoter contract.
var quoterABI = mustParseABI(`[{"constant":false,"inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"amountIn","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"quoteExactInputSingle","outputs":[{"name":"amountOut","type":"uint256"}],"type":"function"}]`)

func mustParseABI(js string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(err)
	}
	return a
}

// Quoters maps a DEX name (pool.Dex) to the on-chain quoter contract used
// for its V3 pools. A DEX absent from this map falls back to the pool's
// own virtual-reserve approximation (internal/pool.SimulateSwap) — this
// supplements spec.md §4.3's "V3 pools via the external quoter contract"
// wording for DEX configurations that don't expose one.
type Quoters map[string]common.Address

// quote dispatches simulate_swap per spec.md §4.3: V2 resolves locally;
// V3 calls the configured external quoter when one exists for that DEX.
func quote(ctx context.Context, client chain.Client, quoters Quoters, p *pool.Pool, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	if p.Variant == pool.VariantV2 {
		return p.SimulateSwap(tokenIn, amountIn)
	}
	quoterAddr, ok := quoters[p.Dex]
	if !ok || quoterAddr == (common.Address{}) {
		return p.SimulateSwap(tokenIn, amountIn)
	}
	return quoteV3(ctx, client, quoterAddr, p, tokenIn, amountIn)
}

func quoteV3(ctx context.Context, client chain.Client, quoterAddr common.Address, p *pool.Pool, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	tokenOut := p.OtherToken(tokenIn)
	data, err := quoterABI.Pack("quoteExactInputSingle", tokenIn, tokenOut, big.NewInt(int64(p.FeeBps)), amountIn, big.NewInt(0))
	if err != nil {
		return nil, coexerr.Provider("pack quoteExactInputSingle", err)
	}
	out, err := client.CallContract(ctx, quoterAddr, data)
	if err != nil {
		return nil, err
	}
	var amountOut *big.Int
	if err := quoterABI.UnpackIntoInterface(&amountOut, "quoteExactInputSingle", out); err != nil {
		return nil, coexerr.Decode("unpack quoteExactInputSingle", err)
	}
	return amountOut, nil
}

// bestPoolForHop queries every pool in m for tokenIn/amountIn concurrently
// (spec.md §4.3: "query every pool's simulate_swap ... concurrently") and
// returns the one with the strictly-greater amount_out. Ties keep the
// first pool encountered in a deterministic (address-sorted) iteration
// order, since Go map iteration order is not itself deterministic.
func bestPoolForHop(ctx context.Context, client chain.Client, quoters Quoters, m *pool.Market, tokenIn common.Address, amountIn *big.Int) (*pool.Pool, *big.Int, error) {
	addrs := make([]common.Address, 0, len(m.Pools))
	for addr := range m.Pools {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})
	if len(addrs) == 0 {
		return nil, nil, coexerr.Decode(fmt.Sprintf("market %s has no pools", m.ID()), nil)
	}

	outs := make([]*big.Int, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addrs {
		i, p := i, m.Pools[addr]
		g.Go(func() error {
			out, err := quote(gctx, client, quoters, p, tokenIn, amountIn)
			if err != nil {
				return err
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	bestIdx := 0
	for i := 1; i < len(addrs); i++ {
		if outs[i].Cmp(outs[bestIdx]) > 0 {
			bestIdx = i
		}
	}
	return m.Pools[addrs[bestIdx]], outs[bestIdx], nil
}

// FindBestRouteAcrossMarkets walks markets in sequence, picking the best
// pool for each hop and propagating amount_out as the next hop's amount_in
// (spec.md §4.3).
func FindBestRouteAcrossMarkets(ctx context.Context, client chain.Client, quoters Quoters, amountIn *big.Int, tokenIn common.Address, markets []*pool.Market) (Route, error) {
	var route Route
	currentToken := tokenIn
	currentAmount := amountIn

	for _, m := range markets {
		p, amountOut, err := bestPoolForHop(ctx, client, quoters, m, currentToken, currentAmount)
		if err != nil {
			return Route{}, err
		}
		route.Hops = append(route.Hops, Hop{
			MarketID:  m.ID(),
			PoolAddr:  p.Addr,
			TokenIn:   currentToken,
			AmountIn:  currentAmount,
			AmountOut: amountOut,
		})

		currentToken = p.OtherToken(currentToken)
		currentAmount = amountOut
	}
	return route, nil
}

// FindBestAToBRoute is the one-market convenience wrapper.
func FindBestAToBRoute(ctx context.Context, client chain.Client, quoters Quoters, amountIn *big.Int, a, b common.Address, markets *pool.MarketSet) (Route, error) {
	m, ok := markets.Get(pool.MarketID(a, b))
	if !ok {
		return Route{}, coexerr.NewMarketDoesNotExistForPair(a, b)
	}
	return FindBestRouteAcrossMarkets(ctx, client, quoters, amountIn, a, []*pool.Market{m})
}

// FindBestAToWethToBRoute degenerates to a single hop if either token is
// weth (spec.md §4.3).
func FindBestAToWethToBRoute(ctx context.Context, client chain.Client, quoters Quoters, amountIn *big.Int, a, b, weth common.Address, markets *pool.MarketSet) (Route, error) {
	if a == weth || b == weth {
		return FindBestAToBRoute(ctx, client, quoters, amountIn, a, b, markets)
	}
	return FindBestAToXToBRoute(ctx, client, quoters, amountIn, a, b, weth, markets)
}

// FindBestAToXToBRoute routes a -> x -> b, erroring if either hop's market
// is missing (spec.md §4.3).
func FindBestAToXToBRoute(ctx context.Context, client chain.Client, quoters Quoters, amountIn *big.Int, a, b, x common.Address, markets *pool.MarketSet) (Route, error) {
	m1, ok := markets.Get(pool.MarketID(a, x))
	if !ok {
		return Route{}, coexerr.NewMarketDoesNotExistForPair(a, x)
	}
	m2, ok := markets.Get(pool.MarketID(x, b))
	if !ok {
		return Route{}, coexerr.NewMarketDoesNotExistForPair(x, b)
	}
	return FindBestRouteAcrossMarkets(ctx, client, quoters, amountIn, a, []*pool.Market{m1, m2})
}

// FindBestWethExitFromRoute replays route on a clone of markets, then picks
// the best single-hop (token_out -> weth) pool for the residual amount due
// to the order's owner (spec.md §4.3). Returns the cloned set so the
// caller can keep scheduling subsequent orders against it within the same
// block (spec.md §4.4: "the next order in the loop sees the liquidity
// already used by prior orders").
func FindBestWethExitFromRoute(ctx context.Context, client chain.Client, quoters Quoters, tokenOut common.Address, amountDueToOwner *big.Int, route Route, markets *pool.MarketSet, weth common.Address) (wethIn, wethOut *big.Int, wethPool *pool.Pool, updated *pool.MarketSet, err error) {
	clone := markets.Clone()
	if err := UpdatePoolsAlongRoute(route, clone); err != nil {
		return nil, nil, nil, nil, err
	}

	if tokenOut == weth {
		return amountDueToOwner, amountDueToOwner, nil, clone, nil
	}

	m, ok := clone.Get(pool.MarketID(tokenOut, weth))
	if !ok {
		return nil, nil, nil, nil, coexerr.NewMarketDoesNotExistForPair(tokenOut, weth)
	}
	p, out, err := bestPoolForHop(ctx, client, quoters, m, tokenOut, amountDueToOwner)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	_, err = p.SimulateSwapMut(tokenOut, amountDueToOwner)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return amountDueToOwner, out, p, clone, nil
}

// UpdatePoolsAlongRoute is simulate_swap_mut's mutating twin of
// find_best_route_across_markets: it resolves each hop's pool within
// markets (the real set to finalize a block, a clone to speculatively test
// a candidate order) and commits the reserve/sqrt-price change in place
// (spec.md §4.3).
func UpdatePoolsAlongRoute(route Route, markets *pool.MarketSet) error {
	for _, hop := range route.Hops {
		m, ok := markets.Get(hop.MarketID)
		if !ok {
			return coexerr.Decode(fmt.Sprintf("update_pools_along_route: market %s missing from target set", hop.MarketID), nil)
		}
		p, ok := m.Pools[hop.PoolAddr]
		if !ok {
			return coexerr.Decode(fmt.Sprintf("update_pools_along_route: pool %s missing from market %s", hop.PoolAddr, hop.MarketID), nil)
		}
		if _, err := p.SimulateSwapMut(hop.TokenIn, hop.AmountIn); err != nil {
			return err
		}
	}
	return nil
}
