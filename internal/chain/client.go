// Package chain wraps the on-chain RPC/WebSocket surface the executor
// consumes (spec.md §6: "ChainClient (consumed)"). Everything here is a
// thin, cloneable adapter over go-ethereum's ethclient/rpc packages — no
// domain logic lives in this package.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Client is the capability surface spec.md §6 requires. A *Backend (below)
// is the production implementation; tests substitute a fake.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	SubscribeNewHead(ctx context.Context) (<-chan *types.Header, ethereum.Subscription, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	EstimateEIP1559Fees(ctx context.Context) (maxFeePerGas, maxPriorityFeePerGas *big.Int, err error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)

	// FillTransaction sets tx's nonce (from's pending nonce) and gas limit
	// (estimated), keeps its fee caps, and returns the completed EIP-1559
	// transaction ready for signing.
	FillTransaction(ctx context.Context, tx *types.Transaction, from common.Address) (*types.Transaction, error)

	// Call performs an eth_call dry-run without submitting.
	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)

	SendRawTransaction(ctx context.Context, rawTx *types.Transaction) error

	// CallContract performs a read-only call against a deployed contract.
	// The caller supplies ABI-encoded calldata and decodes the returned bytes.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// BatchCall issues multiple eth_call requests in one JSON-RPC batch,
	// supplementing spec.md per SPEC_FULL.md §9 (grounded on
	// original_source/src/batch_requests/mod.rs). Results are returned in
	// the same order as calls.
	BatchCall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error)

	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}
