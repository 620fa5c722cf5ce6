package simulator

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/pool"
	"github.com/conveyorlabs/coex/internal/router"
)

// LimitOrderExecutionOrderIds is one group of order ids sharing a common
// first-hop pool (original source: execution/limit_order.rs's
// LimitOrderExecutionOrderIds).
type LimitOrderExecutionOrderIds struct {
	OrderIDs []common.Hash
}

// LimitOrderExecutionBundle is the full set of groups the tx manager turns
// into separate LO-book execution transactions, one per group (original
// source: execution/limit_order.rs's LimitOrderExecutionBundle).
type LimitOrderExecutionBundle struct {
	OrderGroups []LimitOrderExecutionOrderIds
}

// RunLimitOrderSimulator implements spec.md §4.4's limit-order simulator:
// route each order a->weth->b (degenerating to a->b when either side is
// weth), commit the route and the weth exit leg against the cloned market
// set, and group consecutive orders into the same bundle entry while the
// route's first-hop pool stays unchanged (spec.md §4.4: grouped "while the
// route's first pool is the same").
func RunLimitOrderSimulator(ctx context.Context, client chain.Client, quoters router.Quoters, orders []*order.LimitOrder, markets *pool.MarketSet, weth common.Address) (*LimitOrderExecutionBundle, *pool.MarketSet, error) {
	bundle := &LimitOrderExecutionBundle{}
	if len(orders) == 0 {
		return bundle, markets, nil
	}

	sorted := make([]*order.LimitOrder, len(orders))
	copy(sorted, orders)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].AmountIn().Cmp(sorted[j].AmountIn()) < 0
	})

	var currentPool common.Address
	var currentIDs []common.Hash
	haveGroup := false

	flush := func() {
		if haveGroup && len(currentIDs) > 0 {
			bundle.OrderGroups = append(bundle.OrderGroups, LimitOrderExecutionOrderIds{OrderIDs: currentIDs})
		}
	}

	for _, o := range sorted {
		route, err := router.FindBestAToWethToBRoute(ctx, client, quoters, o.AmountIn(), o.TokenIn(), o.TokenOut(), weth, markets)
		if err != nil {
			continue
		}

		amountDue := route.FinalAmountOut()
		_, _, _, updated, err := router.FindBestWethExitFromRoute(ctx, client, quoters, o.TokenOut(), amountDue, route, markets, weth)
		if err != nil {
			continue
		}
		markets = updated

		firstPool, ok := route.FirstPoolAddr()
		if !ok {
			continue
		}

		if haveGroup && currentPool == firstPool {
			currentIDs = append(currentIDs, o.ID())
		} else {
			flush()
			currentPool = firstPool
			currentIDs = []common.Hash{o.ID()}
			haveGroup = true
		}
	}
	flush()

	return bundle, markets, nil
}
