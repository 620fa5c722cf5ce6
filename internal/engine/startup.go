package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/events"
	"github.com/conveyorlabs/coex/internal/order"
)

// replayWindowSize is the block span each OrderPlaced paging query covers
// (spec.md §4.7 step 2, original source: initialize_active_orders's step).
const replayWindowSize = 100_000

// replayHistory rebuilds the active-order and market set from history
// (spec.md §4.7 steps 2-3): page OrderPlaced logs from the profile's
// creation block to the current head in replayWindowSize-block windows,
// and register every order id found. A single id's RegisterOrder failing
// (most commonly because the order has since been filled or cancelled, so
// its on-chain body no longer resolves) is not fatal to the replay — it is
// skipped, mirroring original_source's initialize_active_orders, whose
// get_remote_order failure is handled with a bare `continue`.
func (e *Engine) replayHistory(ctx context.Context) error {
	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("read head block number: %w", err)
	}

	books := []struct {
		addr    common.Address
		variant order.Variant
	}{
		{e.profile.LimitOrderBook, order.VariantLimit},
		{e.profile.SandboxOrderBook, order.VariantSandbox},
	}

	for from := e.profile.CreationBlock; from <= head; from += replayWindowSize {
		to := from + replayWindowSize - 1
		if to > head {
			to = head
		}

		logs, err := e.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{e.profile.LimitOrderBook, e.profile.SandboxOrderBook},
			Topics:    [][]common.Hash{{events.OrderPlacedTopic()}},
		})
		if err != nil {
			return fmt.Errorf("filter OrderPlaced logs [%d,%d]: %w", from, to, err)
		}

		for _, lg := range logs {
			variant, ok := variantForEmitter(books, lg.Address)
			if !ok {
				continue
			}

			ids, err := events.DecodeOrderIDs(lg)
			if err != nil {
				e.logger.Warn("discarding unreadable OrderPlaced log during replay", "error", err, "tx_hash", lg.TxHash)
				continue
			}

			for _, id := range ids {
				if _, err := e.actor.RegisterOrder(ctx, variant, id, e.dexes, e.client); err != nil {
					e.logger.Warn("skipping order during replay", "order_id", id, "error", err)
				}
			}
		}
	}

	return nil
}

func variantForEmitter(books []struct {
	addr    common.Address
	variant order.Variant
}, addr common.Address) (order.Variant, bool) {
	for _, b := range books {
		if b.addr == addr {
			return b.variant, true
		}
	}
	return 0, false
}
