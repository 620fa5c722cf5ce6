// Package engine is the executor's loop driver (spec.md §4.7: "Loop
// driver"): it owns every other package's lifecycle, replays order history
// on start-up, and then drives the block-by-block event/simulate/submit
// cycle until shut down.
//
// Lifecycle: New() → Start() → [runs until ctx is cancelled] → Stop().
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/checkin"
	"github.com/conveyorlabs/coex/internal/config"
	"github.com/conveyorlabs/coex/internal/dex"
	"github.com/conveyorlabs/coex/internal/router"
	"github.com/conveyorlabs/coex/internal/state"
	"github.com/conveyorlabs/coex/internal/txmanager"
	"github.com/conveyorlabs/coex/internal/wallet"
)

// Engine orchestrates all components of the executor. It owns the lifecycle
// of every background goroutine: the pending-tx reaper, the check-in
// daemon, and the main block-subscription loop.
type Engine struct {
	cfg     config.Config
	profile config.Profile
	logger  *slog.Logger

	client  chain.Client
	heads   *chain.HeadWatcher
	signer  *wallet.Signer
	chainID *big.Int

	dexes   []dex.DEX
	quoters router.Quoters

	actor     *state.Actor
	pendingCh chan txmanager.PendingTx

	checkinDaemon *checkin.Daemon

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires every collaborator package together against cfg's chain
// profile. It dials the chain client and derives the wallet address from
// the configured private key, but does not yet touch the chain beyond
// that — history replay happens in Start.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	profile, ok := config.Profiles[cfg.ChainName]
	if !ok {
		return nil, fmt.Errorf("chain_name %q has no compiled-in profile", cfg.ChainName)
	}

	ctx, cancel := context.WithCancel(context.Background())

	client, err := chain.Dial(ctx, cfg.WSEndpoint)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial chain endpoint: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("read chain id: %w", err)
	}

	signer, err := wallet.NewSigner(cfg.PrivateKey, chainID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build signer: %w", err)
	}

	dexes := make([]dex.DEX, len(profile.DEXes))
	for i, c := range profile.DEXes {
		dexes[i] = dex.NewRouter(c)
	}

	s := state.New(profile.LimitOrderBook, profile.SandboxOrderBook, profile.WETH, state.ChainBookReader{})
	actor := state.NewActor(ctx, s)

	daemon := checkin.New(client, signer, profile, chainID, cfg.CheckIn.Interval, cfg.TxManager.SubmitRetryBackoff, logger)

	return &Engine{
		cfg:           cfg,
		profile:       profile,
		logger:        logger.With("component", "engine"),
		client:        client,
		heads:         chain.NewHeadWatcher(cfg.WSEndpoint, logger),
		signer:        signer,
		chainID:       chainID,
		dexes:         dexes,
		quoters:       router.Quoters{}, // no per-DEX external quoter configured; router falls back to pool.SimulateSwap
		actor:         actor,
		pendingCh:     make(chan txmanager.PendingTx, 256),
		checkinDaemon: daemon,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start runs spec.md §4.7's start-up sequence to completion (replay active
// orders, rebuild markets, run one simulator pass) and then launches the
// background goroutines that keep the executor running: the pending-tx
// reaper, the check-in daemon, and the main block-subscription loop.
func (e *Engine) Start() error {
	e.logger.Info("replaying order history", "chain", e.cfg.ChainName, "from_block", e.profile.CreationBlock)
	if err := e.replayHistory(e.ctx); err != nil {
		return fmt.Errorf("replay order history: %w", err)
	}
	e.logger.Info("order history replayed")

	e.runSimulatorPass(e.ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		txmanager.RunPendingTxReaper(e.ctx, e.client, e.actor, e.pendingCh, e.cfg.TxManager.PendingReapInterval, e.logger)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.checkinDaemon.Run(e.ctx); err != nil && e.ctx.Err() == nil {
			e.logger.Error("check-in daemon exited", "error", err)
		}
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runBlockLoop(e.ctx)
	}()

	return nil
}

// Stop cancels every background goroutine and waits for them to exit.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")
	e.cancel()
	e.wg.Wait()
	e.heads.Close()
	e.logger.Info("shutdown complete")
}
