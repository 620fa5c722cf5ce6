package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/txmanager"
)

// thirtyDaysSeconds is the refresh interval original_source's order_refresh
// module hardcodes (THIRTY_DAYS_IN_SECONDS).
const thirtyDaysSeconds = 30 * 24 * 60 * 60

// checkOrdersForCancellation implements spec.md scenarios 2 and 3: an order
// is cancelled once it has expired or its owner can no longer fund it.
// Gated by config.OrderCancellation and run every block against that
// block's own timestamp (original source: bin/coex.rs calls this right
// after applying the block's order/pool events).
//
// Per original_source/cancel/mod.rs, a cancellation submission does not
// mark the order pending or feed the tx reaper — the order stays in
// active_orders, untracked, until the chain's own OrderCanceled event
// confirms it and State.removeOrder clears it.
func (e *Engine) checkOrdersForCancellation(ctx context.Context, blockTimestamp uint64) {
	snap := e.actor.Snapshot(ctx)

	for id, o := range snap.Orders {
		if e.actor.IsPending(ctx, id) {
			continue
		}

		expired := uint64(o.Expiration()) <= blockTimestamp
		underfunded := false
		if !expired {
			balance, err := e.client.BalanceOf(ctx, o.TokenIn(), o.Owner())
			if err != nil {
				e.logger.Error("check order balance for cancellation", "order_id", id, "error", err)
				continue
			}
			underfunded = balance.Cmp(o.AmountIn()) < 0
		}
		if !expired && !underfunded {
			continue
		}

		e.submitCancellation(ctx, id, o.Variant())
	}
}

func (e *Engine) submitCancellation(ctx context.Context, id common.Hash, variant order.Variant) {
	tx, err := txmanager.ConstructAndSimulateCancelOrderTransaction(ctx, e.client, e.profile, e.signer.Address(), e.chainID, id, variant)
	if err != nil {
		e.logger.Error("construct cancel order transaction", "order_id", id, "error", err)
		return
	}

	if _, err := txmanager.SignAndSendTransaction(ctx, tx, e.signer, e.client, e.cfg.TxManager.SubmitRetryBackoff); err != nil {
		e.logger.Error("submit cancel order transaction", "order_id", id, "error", err)
	}
}

// checkOrdersForRefresh implements the periodic refresh original_source's
// order_refresh module runs: an order whose last refresh is at least
// thirtyDaysSeconds behind the current block's timestamp is refreshed.
// Gated by config.OrderRefresh. Unlike cancellation, a refresh submission
// does mark the order pending and is handed to the tx reaper (original
// source: order_refresh::check_orders_for_refresh explicitly sends the
// pending tx hash over its channel).
func (e *Engine) checkOrdersForRefresh(ctx context.Context, blockTimestamp uint64) {
	snap := e.actor.Snapshot(ctx)

	for id, o := range snap.Orders {
		if e.actor.IsPending(ctx, id) {
			continue
		}
		lastRefresh := uint64(o.LastRefresh())
		if lastRefresh >= blockTimestamp || blockTimestamp-lastRefresh < thirtyDaysSeconds {
			continue
		}

		e.submitRefresh(ctx, id, o.Variant())
	}
}

func (e *Engine) submitRefresh(ctx context.Context, id common.Hash, variant order.Variant) {
	orderIDs := []common.Hash{id}

	tx, err := txmanager.ConstructAndSimulateRefreshOrderTransaction(ctx, e.client, e.profile, e.signer.Address(), e.chainID, orderIDs, variant)
	if err != nil {
		e.logger.Error("construct refresh order transaction", "order_id", id, "error", err)
		return
	}

	txHash, err := txmanager.SignAndSendTransaction(ctx, tx, e.signer, e.client, e.cfg.TxManager.SubmitRetryBackoff)
	if err != nil {
		e.logger.Error("submit refresh order transaction", "order_id", id, "error", err)
		return
	}

	e.markPendingAndTrack(ctx, txHash, orderIDs)
}
