package simulator

import (
	"context"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/pool"
	"github.com/conveyorlabs/coex/internal/router"
)

// Call is one external call the sandbox multicall contract forwards on the
// executor's behalf to fill an order against a chosen pool (original
// source: orders/execution_calldata.rs's `Call{target, call_data}`).
type Call struct {
	Target   common.Address
	CallData []byte
}

// SandboxExecutionBundle mirrors the on-chain sandbox book's multicall
// argument shape (original source: execution/sandbox_limit_order.rs's
// SandboxLimitOrderExecutionBundle): order ids are bundled in groups that
// share a backing pool, each group's total fill amount, the address funds
// are pulled from, and the forwarding call that performs the swap.
type SandboxExecutionBundle struct {
	OrderIDBundles    [][]common.Hash
	FillAmounts       []*big.Int
	TransferAddresses []common.Address
	Calls             []Call
}

var (
	v2SwapABI = mustParseSimABI(`[{"constant":false,"inputs":[{"name":"amount0Out","type":"uint256"},{"name":"amount1Out","type":"uint256"},{"name":"to","type":"address"},{"name":"data","type":"bytes"}],"name":"swap","outputs":[],"type":"function"}]`)
	v3SwapABI = mustParseSimABI(`[{"constant":false,"inputs":[{"name":"recipient","type":"address"},{"name":"zeroForOne","type":"bool"},{"name":"amountSpecified","type":"int256"},{"name":"sqrtPriceLimitX96","type":"uint160"},{"name":"data","type":"bytes"}],"name":"swap","outputs":[{"name":"amount0","type":"int256"},{"name":"amount1","type":"int256"}],"type":"function"}]`)
)

func mustParseSimABI(js string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(err)
	}
	return a
}

// buildSwapCall encodes the forwarding call for p, Uniswap V2/V3-shaped
// depending on the pool's variant. The sandbox multicall contract's exact
// dispatch interface is not named in the source this was distilled from;
// this follows the conventional Uniswap pool swap signatures, documented
// in DESIGN.md as a best-effort assumption.
func buildSwapCall(p *pool.Pool, tokenIn common.Address, amountIn, amountOut *big.Int, recipient common.Address) (Call, error) {
	zeroForOne := tokenIn == p.TokenA
	var data []byte
	var err error
	if p.Variant == pool.VariantV2 {
		amount0Out, amount1Out := big.NewInt(0), big.NewInt(0)
		if zeroForOne {
			amount1Out = amountOut
		} else {
			amount0Out = amountOut
		}
		data, err = v2SwapABI.Pack("swap", amount0Out, amount1Out, recipient, []byte{})
	} else {
		data, err = v3SwapABI.Pack("swap", recipient, zeroForOne, amountIn, big.NewInt(0), []byte{})
	}
	if err != nil {
		return Call{}, err
	}
	return Call{Target: p.Address(), CallData: data}, nil
}

// pendingFill is one order scheduled against a chosen pool, accumulated until
// the next order picks a different pool or the market runs out.
type pendingFill struct {
	pool      *pool.Pool
	tokenIn   common.Address
	orderIDs  []common.Hash
	amountIn  *big.Int
	amountOut *big.Int
}

// RunSandboxSimulator implements spec.md §4.4's sandbox-order simulator:
// group by MarketId(token_in, token_out), sort ascending by
// amount_in_remaining, and for each order in turn pick the single pool in
// its market with the highest simulate_swap output among those whose own
// mid-price already satisfies the order's price (original source:
// orders/simulate.rs's simulate_and_batch_sandbox_limit_orders). Orders
// stay in the same bundle entry while the chosen pool is unchanged; the
// chosen pool's reserves are committed before moving to the next order so
// later orders see the liquidity already consumed by earlier ones.
func RunSandboxSimulator(ctx context.Context, client chain.Client, quoters router.Quoters, orders []*order.SandboxLimitOrder, markets *pool.MarketSet, weth common.Address, sandboxBook common.Address) (*SandboxExecutionBundle, *pool.MarketSet, error) {
	bundle := &SandboxExecutionBundle{}
	if len(orders) == 0 {
		return bundle, markets, nil
	}

	byMarket := make(map[common.Hash][]*order.SandboxLimitOrder)
	for _, o := range orders {
		id := pool.MarketID(o.TokenIn(), o.TokenOut())
		byMarket[id] = append(byMarket[id], o)
	}

	marketIDs := make([]common.Hash, 0, len(byMarket))
	for id := range byMarket {
		marketIDs = append(marketIDs, id)
	}
	sort.Slice(marketIDs, func(i, j int) bool { return marketIDs[i].Hex() < marketIDs[j].Hex() })

	var current *pendingFill

	flush := func() {
		if current == nil {
			return
		}
		call, err := buildSwapCall(current.pool, current.tokenIn, current.amountIn, current.amountOut, sandboxBook)
		if err == nil {
			bundle.OrderIDBundles = append(bundle.OrderIDBundles, current.orderIDs)
			bundle.FillAmounts = append(bundle.FillAmounts, current.amountIn)
			bundle.TransferAddresses = append(bundle.TransferAddresses, sandboxBook)
			bundle.Calls = append(bundle.Calls, call)
		}
		current = nil
	}

	for _, marketID := range marketIDs {
		group := byMarket[marketID]
		sort.Slice(group, func(i, j int) bool {
			return group[i].AmountIn().Cmp(group[j].AmountIn()) < 0
		})

		m, ok := markets.Get(marketID)
		if !ok {
			continue
		}

		for _, o := range group {
			satisfies := func(price float64) bool { return price >= o.Price() }
			best, bestOut, found := bestPoolByOutput(m, o.TokenIn(), o.AmountIn(), satisfies)
			if !found {
				continue
			}

			if _, err := best.SimulateSwapMut(o.TokenIn(), o.AmountIn()); err != nil {
				continue
			}

			if current != nil && current.pool.Address() == best.Address() {
				current.orderIDs = append(current.orderIDs, o.ID())
				current.amountIn = new(big.Int).Add(current.amountIn, o.AmountIn())
				current.amountOut = new(big.Int).Add(current.amountOut, bestOut)
			} else {
				flush()
				current = &pendingFill{
					pool:      best,
					tokenIn:   o.TokenIn(),
					orderIDs:  []common.Hash{o.ID()},
					amountIn:  new(big.Int).Set(o.AmountIn()),
					amountOut: new(big.Int).Set(bestOut),
				}
			}
		}
	}
	flush()

	return bundle, markets, nil
}

// bestPoolByOutput picks the pool in m with the highest simulate_swap
// output for amountIn among those whose own mid-price already satisfies
// the comparator (spec.md §4.4: "ignoring pools whose current mid-price
// alone does not already satisfy the order").
func bestPoolByOutput(m *pool.Market, tokenIn common.Address, amountIn *big.Int, satisfies satisfiesFunc) (*pool.Pool, *big.Int, bool) {
	var best *pool.Pool
	var bestOut *big.Int
	for _, p := range m.Pools {
		if !satisfies(p.Price(tokenIn)) {
			continue
		}
		out, err := p.SimulateSwap(tokenIn, amountIn)
		if err != nil {
			continue
		}
		if best == nil || out.Cmp(bestOut) > 0 {
			best, bestOut = p, out
		}
	}
	return best, bestOut, best != nil
}
