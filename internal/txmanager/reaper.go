package txmanager

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/state"
)

// PendingTx is one in-flight transaction and the order ids it was
// submitted to fill or refresh (original source:
// transaction_utils::initialize_pending_transaction_handler's
// (H256, Vec<H256>) channel payload).
type PendingTx struct {
	TxHash   common.Hash
	OrderIDs []common.Hash
}

// RunPendingTxReaper polls every pending transaction's receipt on interval
// and, once confirmed, clears the associated order ids from actor's
// pending set so the simulator will consider them again (spec.md §4.5).
// Unlike the original source's two-goroutine, mutex-guarded map, this
// collapses onto a single goroutine selecting over incoming and a ticker —
// state.Actor is already the single-writer boundary, so a second goroutine
// here would only add synchronization the design doesn't need. Returns
// when ctx is cancelled.
func RunPendingTxReaper(ctx context.Context, client chain.Client, actor *state.Actor, incoming <-chan PendingTx, interval time.Duration, log *slog.Logger) {
	pending := make(map[common.Hash][]common.Hash)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case p, ok := <-incoming:
			if !ok {
				return
			}
			pending[p.TxHash] = p.OrderIDs

		case <-ticker.C:
			for txHash, orderIDs := range pending {
				receipt, err := client.TransactionReceipt(ctx, txHash)
				if err != nil {
					// Not yet mined, or a transient RPC error; leave it
					// pending and check again next tick.
					continue
				}
				if receipt == nil {
					continue
				}

				for _, id := range orderIDs {
					actor.ClearPending(ctx, id)
				}
				delete(pending, txHash)

				if log != nil {
					log.Info("transaction confirmed", "tx_hash", txHash, "order_count", len(orderIDs), "status", receipt.Status)
				}
			}
		}
	}
}
