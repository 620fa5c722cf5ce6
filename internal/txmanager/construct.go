package txmanager

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/config"
	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/simulator"
	"github.com/conveyorlabs/coex/internal/wallet"
)

// gasBumpNum/gasBumpDenom is the 150% bump original_source applies to every
// dry-run gas estimate before submitting, to absorb the gap between the
// simulated call and the block the transaction actually lands in.
const (
	gasBumpNum   = 150
	gasBumpDenom = 100
)

// ConstructAndSimulateLOExecutionTransaction builds the limit-order book's
// executeLimitOrders(orderIds) call and dry-run-fills it (original source:
// transaction_utils::construct_and_simulate_lo_execution_transaction).
func ConstructAndSimulateLOExecutionTransaction(ctx context.Context, client chain.Client, profile config.Profile, from common.Address, chainID *big.Int, orderIDs []common.Hash) (*types.Transaction, error) {
	data, err := limitOrderRouterABI.Pack("executeLimitOrders", toBytes32Slice(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("pack executeLimitOrders: %w", err)
	}
	return fillAndSimulateTransaction(ctx, client, profile.LimitOrderBook, from, chainID, data)
}

// ConstructAndSimulateSLOExecutionTransaction builds the sandbox router's
// executeSandboxMulticall(bundle) call and dry-run-fills it (original
// source: transaction_utils::construct_and_simulate_slo_execution_transaction).
func ConstructAndSimulateSLOExecutionTransaction(ctx context.Context, client chain.Client, profile config.Profile, from common.Address, chainID *big.Int, bundle *simulator.SandboxExecutionBundle) (*types.Transaction, error) {
	data, err := packSandboxMulticall(bundle)
	if err != nil {
		return nil, fmt.Errorf("pack executeSandboxMulticall: %w", err)
	}
	return fillAndSimulateTransaction(ctx, client, profile.Router, from, chainID, data)
}

// ConstructAndSimulateCancelOrderTransaction builds a cancelOrder(orderId)
// call against the book the order's own variant lives on (see bookAddress).
func ConstructAndSimulateCancelOrderTransaction(ctx context.Context, client chain.Client, profile config.Profile, from common.Address, chainID *big.Int, orderID common.Hash, variant order.Variant) (*types.Transaction, error) {
	to := bookAddress(profile, variant)
	cancelABI := limitOrderBookABI
	if variant == order.VariantSandbox {
		cancelABI = sandboxOrderBookABI
	}
	data, err := cancelABI.Pack("cancelOrder", orderID)
	if err != nil {
		return nil, fmt.Errorf("pack cancelOrder: %w", err)
	}
	return fillAndSimulateTransaction(ctx, client, to, from, chainID, data)
}

// ConstructAndSimulateRefreshOrderTransaction builds a refreshOrder(orderIds)
// call against the book the orders' variant lives on.
func ConstructAndSimulateRefreshOrderTransaction(ctx context.Context, client chain.Client, profile config.Profile, from common.Address, chainID *big.Int, orderIDs []common.Hash, variant order.Variant) (*types.Transaction, error) {
	to := bookAddress(profile, variant)
	refreshABI := limitOrderRouterABI
	if variant == order.VariantSandbox {
		refreshABI = sandboxOrderBookABI
	}
	data, err := refreshABI.Pack("refreshOrder", toBytes32Slice(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("pack refreshOrder: %w", err)
	}
	return fillAndSimulateTransaction(ctx, client, to, from, chainID, data)
}

// ConstructAndSimulateCheckInTransaction builds the executor contract's
// checkIn() call (original source: check_in::start_check_in_service).
func ConstructAndSimulateCheckInTransaction(ctx context.Context, client chain.Client, profile config.Profile, from common.Address, chainID *big.Int) (*types.Transaction, error) {
	data, err := executorABI.Pack("checkIn")
	if err != nil {
		return nil, fmt.Errorf("pack checkIn: %w", err)
	}
	return fillAndSimulateTransaction(ctx, client, profile.Executor, from, chainID, data)
}

// bookAddress picks the order book contract the order's variant actually
// lives on, rather than hardcoding the limit-order book for every variant
// (original source's bug this replaces: transactions::construct_and_simulate_cancel_order_transaction
// sent sandbox calldata to the sandbox limit order router's address instead
// of the sandbox order book it was packed against).
func bookAddress(profile config.Profile, variant order.Variant) common.Address {
	if variant == order.VariantSandbox {
		return profile.SandboxOrderBook
	}
	return profile.LimitOrderBook
}

func toBytes32Slice(ids []common.Hash) [][32]byte {
	out := make([][32]byte, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func packSandboxMulticall(bundle *simulator.SandboxExecutionBundle) ([]byte, error) {
	orderIDBundles := make([][][32]byte, len(bundle.OrderIDBundles))
	for i, group := range bundle.OrderIDBundles {
		orderIDBundles[i] = toBytes32Slice(group)
	}

	type callTuple struct {
		Target   common.Address
		CallData []byte
	}
	calls := make([]callTuple, len(bundle.Calls))
	for i, c := range bundle.Calls {
		calls[i] = callTuple{Target: c.Target, CallData: c.CallData}
	}

	return sandboxRouterABI.Pack("executeSandboxMulticall", orderIDBundles, bundle.FillAmounts, bundle.TransferAddresses, calls)
}

// fillAndSimulateTransaction estimates EIP-1559 fees, dry-run-fills the
// transaction via the client (which reverts here if the calldata would
// revert on-chain), and bumps the estimated gas by gasBumpNum/gasBumpDenom
// before returning it for signing (original source:
// transaction_utils::fill_and_simulate_transaction).
func fillAndSimulateTransaction(ctx context.Context, client chain.Client, to, from common.Address, chainID *big.Int, data []byte) (*types.Transaction, error) {
	maxFeePerGas, maxPriorityFeePerGas, err := client.EstimateEIP1559Fees(ctx)
	if err != nil {
		return nil, fmt.Errorf("estimate eip1559 fees: %w", err)
	}

	unfilled := wallet.NewDynamicFeeTx(chainID, 0, to, big.NewInt(0), 0, maxFeePerGas, maxPriorityFeePerGas, data)

	filled, err := client.FillTransaction(ctx, unfilled, from)
	if err != nil {
		return nil, fmt.Errorf("fill transaction: %w", err)
	}

	bumpedGas := new(big.Int).Mul(new(big.Int).SetUint64(filled.Gas()), big.NewInt(gasBumpNum))
	bumpedGas.Div(bumpedGas, big.NewInt(gasBumpDenom))

	return wallet.NewDynamicFeeTx(chainID, filled.Nonce(), to, filled.Value(), bumpedGas.Uint64(), filled.GasFeeCap(), filled.GasTipCap(), filled.Data()), nil
}
