package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/conveyorlabs/coex/internal/coexerr"
)

// erc20ABI covers just the one method the executor needs to read a
// wallet's token balance before sizing simulated fills.
var erc20ABI = mustParseABI(`[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`)

func mustParseABI(js string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(err)
	}
	return a
}

// Backend is the production Client implementation, backed by an HTTP (or
// WS) JSON-RPC endpoint via go-ethereum's ethclient and rpc packages.
type Backend struct {
	eth *ethclient.Client
	rpc *rpc.Client
}

var _ Client = (*Backend)(nil)

// Dial connects to the given JSON-RPC endpoint (HTTP or WS) and returns a
// ready-to-use Backend.
func Dial(ctx context.Context, endpoint string) (*Backend, error) {
	rc, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, coexerr.Network("dial chain endpoint", err)
	}
	return &Backend{eth: ethclient.NewClient(rc), rpc: rc}, nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := b.eth.BlockNumber(ctx)
	if err != nil {
		return 0, coexerr.Network("block number", err)
	}
	return n, nil
}

func (b *Backend) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	blk, err := b.eth.BlockByNumber(ctx, number)
	if err != nil {
		return nil, coexerr.Network("block by number", err)
	}
	return blk, nil
}

func (b *Backend) SubscribeNewHead(ctx context.Context) (<-chan *types.Header, ethereum.Subscription, error) {
	ch := make(chan *types.Header, 16)
	sub, err := b.eth.SubscribeNewHead(ctx, ch)
	if err != nil {
		return nil, nil, coexerr.Network("subscribe new head", err)
	}
	return ch, sub, nil
}

func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := b.eth.FilterLogs(ctx, q)
	if err != nil {
		return nil, coexerr.Network("filter logs", err)
	}
	return logs, nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	r, err := b.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err // caller treats ethereum.NotFound specially; do not wrap
	}
	return r, nil
}

func (b *Backend) EstimateEIP1559Fees(ctx context.Context) (*big.Int, *big.Int, error) {
	tip, err := b.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, coexerr.Network("suggest gas tip cap", err)
	}
	head, err := b.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, coexerr.Network("header by number", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	maxFee := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)
	return maxFee, tip, nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := b.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, coexerr.Network("suggest gas price", err)
	}
	return price, nil
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := b.eth.EstimateGas(ctx, msg)
	if err != nil {
		return 0, coexerr.Contract("estimate gas", err)
	}
	return gas, nil
}

func (b *Backend) FillTransaction(ctx context.Context, tx *types.Transaction, from common.Address) (*types.Transaction, error) {
	nonce, err := b.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, coexerr.Network("pending nonce", err)
	}

	msg := ethereum.CallMsg{
		From:      from,
		To:        tx.To(),
		Value:     tx.Value(),
		Data:      tx.Data(),
		GasFeeCap: tx.GasFeeCap(),
		GasTipCap: tx.GasTipCap(),
	}
	gas, err := b.eth.EstimateGas(ctx, msg)
	if err != nil {
		return nil, coexerr.Contract("estimate gas", err)
	}

	filled := types.NewTx(&types.DynamicFeeTx{
		ChainID:   tx.ChainId(),
		Nonce:     nonce,
		GasTipCap: tx.GasTipCap(),
		GasFeeCap: tx.GasFeeCap(),
		Gas:       gas,
		To:        tx.To(),
		Value:     tx.Value(),
		Data:      tx.Data(),
	})
	return filled, nil
}

func (b *Backend) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	out, err := b.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, coexerr.Contract("dry-run call reverted", err)
	}
	return out, nil
}

func (b *Backend) SendRawTransaction(ctx context.Context, rawTx *types.Transaction) error {
	if err := b.eth.SendTransaction(ctx, rawTx); err != nil {
		return err // caller inspects the error text per spec.md §4.5
	}
	return nil
}

func (b *Backend) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := b.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, coexerr.Contract(fmt.Sprintf("call %s reverted", to), err)
	}
	return out, nil
}

// BatchCall issues N eth_call requests as one JSON-RPC batch via the
// underlying *rpc.Client, per SPEC_FULL.md §9 (grounded on
// original_source/src/batch_requests/mod.rs).
func (b *Backend) BatchCall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error) {
	batch := make([]rpc.BatchElem, len(calls))
	results := make([]string, len(calls))
	for i, c := range calls {
		arg := toCallArg(c)
		batch[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []interface{}{arg, "latest"},
			Result: &results[i],
		}
	}
	if err := b.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, coexerr.Network("batch eth_call", err)
	}

	out := make([][]byte, len(calls))
	for i, elem := range batch {
		if elem.Error != nil {
			return nil, coexerr.Contract(fmt.Sprintf("batch call %d reverted", i), elem.Error)
		}
		out[i] = common.FromHex(results[i])
	}
	return out, nil
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := b.eth.ChainID(ctx)
	if err != nil {
		return nil, coexerr.Network("chain id", err)
	}
	return id, nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	n, err := b.eth.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, coexerr.Network("pending nonce at", err)
	}
	return n, nil
}

func (b *Backend) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, coexerr.Provider("pack balanceOf", err)
	}
	out, err := b.CallContract(ctx, token, data)
	if err != nil {
		return nil, err
	}
	var balance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&balance, "balanceOf", out); err != nil {
		return nil, coexerr.Decode("unpack balanceOf", err)
	}
	return balance, nil
}

func toCallArg(msg ethereum.CallMsg) map[string]interface{} {
	arg := map[string]interface{}{}
	if msg.To != nil {
		arg["to"] = msg.To.Hex()
	}
	if len(msg.Data) > 0 {
		arg["data"] = "0x" + common.Bytes2Hex(msg.Data)
	}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From.Hex()
	}
	return arg
}
