package engine

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/conveyorlabs/coex/internal/config"
	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/state"
	"github.com/conveyorlabs/coex/internal/txmanager"
	"github.com/conveyorlabs/coex/internal/wallet"
)

var (
	limitBookAddr   = common.HexToAddress("0x1000000000000000000000000000000000000a")
	sandboxBookAddr = common.HexToAddress("0x1000000000000000000000000000000000000b")
	wethAddr        = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenAddr       = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeClient is a scriptable chain.Client; only the methods the engine
// package actually calls are wired, the rest panic so an unexpected call
// fails loudly rather than silently returning zero values.
type fakeClient struct {
	balances   map[common.Address]*big.Int
	balanceErr error
	maxFee     *big.Int
	maxTip     *big.Int
	sendCalls  int
	sendErr    error
}

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) { panic("unused") }
func (f *fakeClient) BlockByNumber(ctx context.Context, n *big.Int) (*ethtypes.Block, error) {
	panic("unused")
}
func (f *fakeClient) SubscribeNewHead(ctx context.Context) (<-chan *ethtypes.Header, ethereum.Subscription, error) {
	panic("unused")
}
func (f *fakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	panic("unused")
}
func (f *fakeClient) TransactionReceipt(ctx context.Context, h common.Hash) (*ethtypes.Receipt, error) {
	panic("unused")
}
func (f *fakeClient) EstimateEIP1559Fees(ctx context.Context) (*big.Int, *big.Int, error) {
	return f.maxFee, f.maxTip, nil
}
func (f *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) { panic("unused") }
func (f *fakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	panic("unused")
}
func (f *fakeClient) FillTransaction(ctx context.Context, tx *ethtypes.Transaction, from common.Address) (*ethtypes.Transaction, error) {
	to := *tx.To()
	return wallet.NewDynamicFeeTx(tx.ChainId(), 1, to, tx.Value(), 21000, tx.GasFeeCap(), tx.GasTipCap(), tx.Data()), nil
}
func (f *fakeClient) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	panic("unused")
}
func (f *fakeClient) SendRawTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	f.sendCalls++
	return f.sendErr
}
func (f *fakeClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	panic("unused")
}
func (f *fakeClient) BatchCall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error) {
	panic("unused")
}
func (f *fakeClient) ChainID(ctx context.Context) (*big.Int, error) { panic("unused") }
func (f *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	panic("unused")
}
func (f *fakeClient) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return f.balances[owner], nil
}

func testProfile() config.Profile {
	return config.Profile{
		WETH:             wethAddr,
		LimitOrderBook:   limitBookAddr,
		SandboxOrderBook: sandboxBookAddr,
	}
}

func testSigner(t *testing.T) *wallet.Signer {
	t.Helper()
	s, err := wallet.NewSigner("0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690", big.NewInt(1))
	require.NoError(t, err)
	return s
}

// testEngine builds an Engine wired against a real state.Actor seeded with
// orders, skipping New (which dials the chain). The returned context is
// cancelled on test cleanup, stopping the actor's owning goroutine.
func testEngine(t *testing.T, client *fakeClient, orders ...order.Order) (*Engine, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := state.New(limitBookAddr, sandboxBookAddr, wethAddr, nil)
	for _, o := range orders {
		s.ActiveOrders()[o.ID()] = o
	}
	actor := state.NewActor(ctx, s)

	return &Engine{
		cfg:       config.Config{},
		profile:   testProfile(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		client:    client,
		signer:    testSigner(t),
		chainID:   big.NewInt(1),
		actor:     actor,
		pendingCh: make(chan txmanager.PendingTx, 8),
	}, ctx
}

func limitOrder(id common.Hash, owner common.Address, expiration, lastRefresh uint32, amountIn *big.Int) *order.LimitOrder {
	return &order.LimitOrder{
		IDVal:           id,
		LastRefreshVal:  lastRefresh,
		ExpirationVal:   expiration,
		Quantity:        amountIn,
		ExecutionCredit: big.NewInt(0),
		AmountOutMin:    big.NewInt(0),
		OwnerAddr:       owner,
		TokenInAddr:     tokenAddr,
		TokenOutAddr:    wethAddr,
	}
}

func TestCheckOrdersForCancellationExpired(t *testing.T) {
	t.Parallel()
	owner := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	id := common.HexToHash("0x01")
	o := limitOrder(id, owner, 100, 50, big.NewInt(1000))

	client := &fakeClient{maxFee: big.NewInt(100), maxTip: big.NewInt(2)}
	eng, ctx := testEngine(t, client, o)

	eng.checkOrdersForCancellation(ctx, 200) // block timestamp past expiration

	require.Equal(t, 1, client.sendCalls)
	require.False(t, eng.actor.IsPending(ctx, id)) // cancellation never marks pending
}

func TestCheckOrdersForCancellationInsufficientBalance(t *testing.T) {
	t.Parallel()
	owner := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	id := common.HexToHash("0x01")
	o := limitOrder(id, owner, 1_000_000, 50, big.NewInt(1000)) // not expired, but underfunded

	client := &fakeClient{
		maxFee:   big.NewInt(100),
		maxTip:   big.NewInt(2),
		balances: map[common.Address]*big.Int{owner: big.NewInt(10)},
	}
	eng, ctx := testEngine(t, client, o)

	eng.checkOrdersForCancellation(ctx, 200)

	require.Equal(t, 1, client.sendCalls)
}

func TestCheckOrdersForCancellationSkipsFundedUnexpired(t *testing.T) {
	t.Parallel()
	owner := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	id := common.HexToHash("0x01")
	o := limitOrder(id, owner, 1_000_000, 50, big.NewInt(1000))

	client := &fakeClient{
		maxFee:   big.NewInt(100),
		maxTip:   big.NewInt(2),
		balances: map[common.Address]*big.Int{owner: big.NewInt(10_000)},
	}
	eng, ctx := testEngine(t, client, o)

	eng.checkOrdersForCancellation(ctx, 200)

	require.Equal(t, 0, client.sendCalls)
}

func TestCheckOrdersForRefreshSubmitsAndMarksPending(t *testing.T) {
	t.Parallel()
	owner := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	id := common.HexToHash("0x01")
	o := limitOrder(id, owner, 10_000_000_000, 0, big.NewInt(1000))

	client := &fakeClient{maxFee: big.NewInt(100), maxTip: big.NewInt(2)}
	eng, ctx := testEngine(t, client, o)

	eng.checkOrdersForRefresh(ctx, thirtyDaysSeconds+1)

	require.Equal(t, 1, client.sendCalls)
	require.True(t, eng.actor.IsPending(ctx, id))

	select {
	case pt := <-eng.pendingCh:
		require.Equal(t, []common.Hash{id}, pt.OrderIDs)
	case <-time.After(time.Second):
		t.Fatal("expected a PendingTx to be queued")
	}
}

func TestCheckOrdersForRefreshSkipsRecentlyRefreshed(t *testing.T) {
	t.Parallel()
	owner := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	id := common.HexToHash("0x01")
	o := limitOrder(id, owner, 10_000_000_000, 100, big.NewInt(1000))

	client := &fakeClient{maxFee: big.NewInt(100), maxTip: big.NewInt(2)}
	eng, ctx := testEngine(t, client, o)

	eng.checkOrdersForRefresh(ctx, 100+thirtyDaysSeconds-1)

	require.Equal(t, 0, client.sendCalls)
}

func TestCheckOrdersForCancellationSkipsPendingOrders(t *testing.T) {
	t.Parallel()
	owner := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	id := common.HexToHash("0x01")
	o := limitOrder(id, owner, 100, 50, big.NewInt(1000))

	client := &fakeClient{maxFee: big.NewInt(100), maxTip: big.NewInt(2)}
	eng, ctx := testEngine(t, client, o)
	eng.actor.MarkPending(ctx, id)

	eng.checkOrdersForCancellation(ctx, 200)

	require.Equal(t, 0, client.sendCalls)
}

func TestDecodePoolLogsSkipsUnrecognizedTopic(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	logs := []ethtypes.Log{
		{Address: common.HexToAddress("0x3333333333333333333333333333333333333333"), Topics: []common.Hash{common.HexToHash("0xdead")}},
	}

	out := decodePoolLogs(logs, logger)
	require.Empty(t, out)
}
