package simulator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/config"
	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/router"
	"github.com/conveyorlabs/coex/internal/state"
)

// Result is what FillOrdersAtExecutionPrice hands to the tx manager: the two
// independent execution bundles spec.md §4.4 produces per pass.
type Result struct {
	Sandbox    *SandboxExecutionBundle
	LimitOrder *LimitOrderExecutionBundle
}

// FillOrdersAtExecutionPrice runs spec.md §4.4's six-step algorithm: clone
// state, filter active orders down to the ones that can_execute, drop any
// whose owner can no longer fund the fill, bucket by book, then hand each
// bucket to its simulator. Orders already pending a transaction are skipped
// (spec.md §4.5: single in-flight transaction per order id).
func FillOrdersAtExecutionPrice(
	ctx context.Context,
	snap state.Snapshot,
	isPending func(common.Hash) bool,
	weth common.Address,
	sandboxBook common.Address,
	quoters router.Quoters,
	cfg config.SimulatorConfig,
	client chain.Client,
) (Result, error) {
	markets := snap.Markets

	eligible := make([]order.Order, 0, len(snap.Orders))
	for id, o := range snap.Orders {
		if isPending(id) {
			continue
		}
		eligible = append(eligible, o)
	}

	candidates := candidateOrders(ordersByID(eligible), markets, weth)

	funded, err := filterByBalance(ctx, client, candidates, cfg.MaxConcurrentBalanceChecks)
	if err != nil {
		return Result{}, err
	}

	var sandboxOrders []*order.SandboxLimitOrder
	var limitOrders []*order.LimitOrder
	for _, o := range funded {
		switch v := o.(type) {
		case *order.SandboxLimitOrder:
			sandboxOrders = append(sandboxOrders, v)
		case *order.LimitOrder:
			limitOrders = append(limitOrders, v)
		}
	}

	sandboxBundle, markets, err := RunSandboxSimulator(ctx, client, quoters, sandboxOrders, markets, weth, sandboxBook)
	if err != nil {
		return Result{}, err
	}

	limitBundle, _, err := RunLimitOrderSimulator(ctx, client, quoters, limitOrders, markets, weth)
	if err != nil {
		return Result{}, err
	}

	return Result{Sandbox: sandboxBundle, LimitOrder: limitBundle}, nil
}

func ordersByID(orders []order.Order) map[common.Hash]order.Order {
	m := make(map[common.Hash]order.Order, len(orders))
	for _, o := range orders {
		m[o.ID()] = o
	}
	return m
}

// filterByBalance fans the owner balanceOf(token_in) check out concurrently,
// bounded by maxConcurrent (spec.md §4.4 step 3, config.simulator.max_concurrent_balance_checks).
func filterByBalance(ctx context.Context, client chain.Client, candidates []order.Order, maxConcurrent int) ([]order.Order, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	ok := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, o := range candidates {
		i, o := i, o
		g.Go(func() error {
			bal, err := client.BalanceOf(gctx, o.TokenIn(), o.Owner())
			if err != nil {
				// A balance lookup failing for one order must not sink the
				// whole pass; treat it as insufficient and move on.
				ok[i] = false
				return nil
			}
			ok[i] = bal.Cmp(o.AmountIn()) >= 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]order.Order, 0, len(candidates))
	for i, o := range candidates {
		if ok[i] {
			out = append(out, o)
		}
	}
	return out, nil
}
