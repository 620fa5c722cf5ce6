package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/simulator"
	"github.com/conveyorlabs/coex/internal/txmanager"
)

// runSimulatorPass runs one spec.md §4.4 simulation pass over the current
// state and submits whatever bundles it produces. It is called both from
// Start (the initial whole-market pass) and from processBlock whenever a
// block's pool events change the market set.
func (e *Engine) runSimulatorPass(ctx context.Context) {
	snap := e.actor.Snapshot(ctx)

	isPending := func(id common.Hash) bool { return e.actor.IsPending(ctx, id) }

	result, err := simulator.FillOrdersAtExecutionPrice(ctx, snap, isPending, e.profile.WETH, e.profile.SandboxOrderBook, e.quoters, e.cfg.Simulator, e.client)
	if err != nil {
		e.logger.Error("simulator pass failed", "error", err)
		return
	}

	if result.Sandbox != nil && len(result.Sandbox.OrderIDBundles) > 0 {
		e.submitSandboxBundle(ctx, result.Sandbox)
	}
	if result.LimitOrder != nil {
		for _, group := range result.LimitOrder.OrderGroups {
			e.submitLimitOrderGroup(ctx, group.OrderIDs)
		}
	}
}

func (e *Engine) submitSandboxBundle(ctx context.Context, bundle *simulator.SandboxExecutionBundle) {
	tx, err := txmanager.ConstructAndSimulateSLOExecutionTransaction(ctx, e.client, e.profile, e.signer.Address(), e.chainID, bundle)
	if err != nil {
		e.logger.Error("construct sandbox execution transaction", "error", err)
		return
	}

	txHash, err := txmanager.SignAndSendTransaction(ctx, tx, e.signer, e.client, e.cfg.TxManager.SubmitRetryBackoff)
	if err != nil {
		e.logger.Error("submit sandbox execution transaction", "error", err)
		return
	}

	var ids []common.Hash
	for _, group := range bundle.OrderIDBundles {
		ids = append(ids, group...)
	}
	e.markPendingAndTrack(ctx, txHash, ids)
}

func (e *Engine) submitLimitOrderGroup(ctx context.Context, orderIDs []common.Hash) {
	tx, err := txmanager.ConstructAndSimulateLOExecutionTransaction(ctx, e.client, e.profile, e.signer.Address(), e.chainID, orderIDs)
	if err != nil {
		e.logger.Error("construct limit order execution transaction", "error", err)
		return
	}

	txHash, err := txmanager.SignAndSendTransaction(ctx, tx, e.signer, e.client, e.cfg.TxManager.SubmitRetryBackoff)
	if err != nil {
		e.logger.Error("submit limit order execution transaction", "error", err)
		return
	}

	e.markPendingAndTrack(ctx, txHash, orderIDs)
}

// markPendingAndTrack records every id in ids as pending and hands the
// submitted transaction to the reaper. The send is select-guarded against
// ctx so a full channel never blocks shutdown (spec.md §4.5: the reaper is
// the only thing allowed to clear a pending id).
func (e *Engine) markPendingAndTrack(ctx context.Context, txHash common.Hash, ids []common.Hash) {
	for _, id := range ids {
		e.actor.MarkPending(ctx, id)
	}
	select {
	case e.pendingCh <- txmanager.PendingTx{TxHash: txHash, OrderIDs: ids}:
	case <-ctx.Done():
	}
}
