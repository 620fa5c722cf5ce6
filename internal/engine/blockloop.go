package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/conveyorlabs/coex/internal/events"
	"github.com/conveyorlabs/coex/internal/state"
)

// runBlockLoop subscribes to new block headers and drives spec.md §4.7's
// main loop for each one. Backend.SubscribeNewHead is the primary path;
// if it fails to establish or its error channel fires, the loop falls back
// to chain.HeadWatcher's raw websocket subscription so a single flaky RPC
// provider cannot stall block ingestion.
func (e *Engine) runBlockLoop(ctx context.Context) {
	headCh, sub, err := e.client.SubscribeNewHead(ctx)
	if err != nil {
		e.logger.Warn("primary head subscription unavailable, falling back to websocket watcher", "error", err)
		e.runFallbackBlockLoop(ctx)
		return
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			e.logger.Warn("head subscription dropped, falling back to websocket watcher", "error", err)
			e.runFallbackBlockLoop(ctx)
			return
		case head := <-headCh:
			e.processBlock(ctx, head)
		}
	}
}

func (e *Engine) runFallbackBlockLoop(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.heads.Run(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("head watcher exited", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case head := <-e.heads.Heads():
			e.processBlock(ctx, head)
		}
	}
}

// processBlock implements spec.md §4.7's per-block body: fetch the block's
// logs under a topic filter covering all nine event signatures, apply the
// order-event and pool-event passes, run the cancellation/refresh checks
// the config gates, and re-simulate if any pool changed.
func (e *Engine) processBlock(ctx context.Context, head *ethtypes.Header) {
	blockNumber := head.Number.Uint64()

	logs, err := e.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(blockNumber),
		ToBlock:   new(big.Int).SetUint64(blockNumber),
		Topics:    [][]common.Hash{events.Topics()},
	})
	if err != nil {
		e.logger.Error("filter block logs", "block", blockNumber, "error", err)
		return
	}

	orderEvents, poolLogs := events.Decode(logs, e.logger)

	if len(orderEvents) > 0 {
		if _, err := e.actor.ApplyOrderEvents(ctx, orderEvents, e.dexes, e.client); err != nil {
			e.logger.Error("apply order events", "block", blockNumber, "error", err)
			return
		}
	}

	decoded := decodePoolLogs(poolLogs, e.logger)
	updated := e.actor.ApplyPoolEvents(ctx, decoded)

	if e.cfg.OrderCancellation {
		e.checkOrdersForCancellation(ctx, head.Time)
	}
	if e.cfg.OrderRefresh {
		e.checkOrdersForRefresh(ctx, head.Time)
	}

	if len(updated) > 0 {
		e.runSimulatorPass(ctx)
	}
}

// decodePoolLogs ABI-decodes every classified V2Sync/V3Swap log into the
// shape state.ApplyPoolEvents needs. A log that fails to decode under its
// declared schema is dropped with a warning rather than aborting the
// block, the same tolerance events.Decode already applies to unrecognized
// topics.
func decodePoolLogs(logs []ethtypes.Log, logger interface {
	Warn(msg string, args ...any)
}) []state.DecodedPoolLog {
	out := make([]state.DecodedPoolLog, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) == 0 {
			continue
		}
		switch events.ClassifyTopic(lg.Topics[0]) {
		case events.V2Sync:
			p, err := events.DecodeV2Sync(lg)
			if err != nil {
				logger.Warn("discarding unreadable Sync log", "error", err, "address", lg.Address)
				continue
			}
			out = append(out, state.DecodedPoolLog{
				Address:  lg.Address,
				Kind:     state.PoolEventV2Sync,
				Reserve0: p.Reserve0,
				Reserve1: p.Reserve1,
			})
		case events.V3Swap:
			p, err := events.DecodeV3Swap(lg)
			if err != nil {
				logger.Warn("discarding unreadable Swap log", "error", err, "address", lg.Address)
				continue
			}
			out = append(out, state.DecodedPoolLog{
				Address:      lg.Address,
				Kind:         state.PoolEventV3Swap,
				SqrtPriceX96: p.SqrtPrice(),
				Liquidity:    p.Liquidity,
				Tick:         p.Tick,
			})
		}
	}
	return out
}
