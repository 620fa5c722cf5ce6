package state

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/dex"
	"github.com/conveyorlabs/coex/internal/events"
	"github.com/conveyorlabs/coex/internal/order"
)

// Actor is the single-owner wrapper spec.md §9's Design Note asks for: one
// goroutine owns the State value and every other goroutine (the loop
// driver, the tx manager, the pending-tx reaper) talks to it only through
// this typed command channel. This replaces the shared-guarded-map pattern
// with a single writer, without changing any method's externally observed
// behavior — every public method below blocks until the owning goroutine
// has applied the command and sends its reply.
type Actor struct {
	cmds chan command
	done chan struct{}
}

type command struct {
	run   func(*State)
	reply chan struct{}
}

// NewActor starts the owning goroutine over state and returns the handle
// other goroutines call. Run stops when ctx is cancelled.
func NewActor(ctx context.Context, s *State) *Actor {
	a := &Actor{
		cmds: make(chan command),
		done: make(chan struct{}),
	}
	go a.run(ctx, s)
	return a
}

func (a *Actor) run(ctx context.Context, s *State) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-a.cmds:
			cmd.run(s)
			close(cmd.reply)
		}
	}
}

// send blocks until the owning goroutine has run fn against the live
// State, or ctx is cancelled first.
func (a *Actor) send(ctx context.Context, fn func(*State)) {
	reply := make(chan struct{})
	select {
	case a.cmds <- command{run: fn, reply: reply}:
	case <-ctx.Done():
		return
	}
	select {
	case <-reply:
	case <-ctx.Done():
	}
}

// RegisterOrder runs State.RegisterOrder on the owning goroutine.
func (a *Actor) RegisterOrder(ctx context.Context, variant order.Variant, id common.Hash, dexes []dex.DEX, client chain.Client) (MarketSet, error) {
	var markets MarketSet
	var err error
	a.send(ctx, func(s *State) {
		markets, err = s.RegisterOrder(ctx, variant, id, dexes, client)
	})
	return markets, err
}

// ApplyOrderEvents runs State.ApplyOrderEvents on the owning goroutine.
func (a *Actor) ApplyOrderEvents(ctx context.Context, evts []events.OrderEvent, dexes []dex.DEX, client chain.Client) (MarketSet, error) {
	var affected MarketSet
	var err error
	a.send(ctx, func(s *State) {
		affected, err = s.ApplyOrderEvents(ctx, evts, dexes, client)
	})
	return affected, err
}

// ApplyPoolEvents runs State.ApplyPoolEvents on the owning goroutine.
func (a *Actor) ApplyPoolEvents(ctx context.Context, logs []DecodedPoolLog) MarketSet {
	var updated MarketSet
	a.send(ctx, func(s *State) {
		updated = s.ApplyPoolEvents(logs)
	})
	return updated
}

// ApplyOrderPartialFilled runs the matching State method on the owning
// goroutine.
func (a *Actor) ApplyOrderPartialFilled(ctx context.Context, p events.PartialFillPayload) {
	a.send(ctx, func(s *State) {
		s.ApplyOrderPartialFilled(p.OrderID, p.AmountInRemaining, p.AmountOutRemaining, p.ExecutionCreditRemaining, p.FeeRemaining)
	})
}

// ApplyOrderRefreshed runs the matching State method on the owning
// goroutine.
func (a *Actor) ApplyOrderRefreshed(ctx context.Context, p events.RefreshPayload) {
	a.send(ctx, func(s *State) {
		s.ApplyOrderRefreshed(p.OrderID, p.LastRefreshTimestamp, p.ExpirationTimestamp)
	})
}

// ApplyOrderExecutionCreditUpdated runs the matching State method on the
// owning goroutine.
func (a *Actor) ApplyOrderExecutionCreditUpdated(ctx context.Context, p events.ExecutionCreditPayload) {
	a.send(ctx, func(s *State) {
		s.ApplyOrderExecutionCreditUpdated(p.OrderID, p.ExecutionCreditRemaining)
	})
}

// Snapshot returns a cloned, point-in-time view of orders and markets.
func (a *Actor) Snapshot(ctx context.Context) Snapshot {
	var snap Snapshot
	a.send(ctx, func(s *State) {
		snap = s.Snapshot()
	})
	return snap
}

// MarkPending runs State.MarkPending on the owning goroutine.
func (a *Actor) MarkPending(ctx context.Context, id common.Hash) {
	a.send(ctx, func(s *State) { s.MarkPending(id) })
}

// ClearPending runs State.ClearPending on the owning goroutine.
func (a *Actor) ClearPending(ctx context.Context, id common.Hash) {
	a.send(ctx, func(s *State) { s.ClearPending(id) })
}

// IsPending runs State.IsPending on the owning goroutine.
func (a *Actor) IsPending(ctx context.Context, id common.Hash) bool {
	var pending bool
	a.send(ctx, func(s *State) { pending = s.IsPending(id) })
	return pending
}

// Done closes once the owning goroutine has exited after context
// cancellation — callers awaiting graceful shutdown select on this.
func (a *Actor) Done() <-chan struct{} { return a.done }
