package simulator

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/conveyorlabs/coex/internal/order"
	"github.com/conveyorlabs/coex/internal/pool"
)

var (
	weth  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokA  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokB  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	poolX = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	poolY = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

// fakeClient implements chain.Client; BalanceOf is configurable, everything
// else panics since the simulator tests here never need an RPC round trip
// beyond a balance check.
type fakeClient struct {
	balances map[common.Address]*big.Int
}

func (f fakeClient) BlockNumber(ctx context.Context) (uint64, error) { panic("unused") }
func (f fakeClient) BlockByNumber(ctx context.Context, n *big.Int) (*ethtypes.Block, error) {
	panic("unused")
}
func (f fakeClient) SubscribeNewHead(ctx context.Context) (<-chan *ethtypes.Header, ethereum.Subscription, error) {
	panic("unused")
}
func (f fakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	panic("unused")
}
func (f fakeClient) TransactionReceipt(ctx context.Context, h common.Hash) (*ethtypes.Receipt, error) {
	panic("unused")
}
func (f fakeClient) EstimateEIP1559Fees(ctx context.Context) (*big.Int, *big.Int, error) {
	panic("unused")
}
func (f fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) { panic("unused") }
func (f fakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	panic("unused")
}
func (f fakeClient) FillTransaction(ctx context.Context, tx *ethtypes.Transaction, from common.Address) (*ethtypes.Transaction, error) {
	panic("unused")
}
func (f fakeClient) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	panic("unused")
}
func (f fakeClient) SendRawTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	panic("unused")
}
func (f fakeClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	panic("unused")
}
func (f fakeClient) BatchCall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error) {
	panic("unused")
}
func (f fakeClient) ChainID(ctx context.Context) (*big.Int, error) { panic("unused") }
func (f fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	panic("unused")
}
func (f fakeClient) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if bal, ok := f.balances[owner]; ok {
		return bal, nil
	}
	return big.NewInt(0), nil
}

func aWethMarket() *pool.MarketSet {
	ms := pool.NewMarketSet()
	p := pool.NewV2(poolX, tokA, weth, big.NewInt(1_000_000), big.NewInt(2_000_000), 30, "uniswap-v2")
	ms.AddPool(tokA, weth, p)
	return ms
}

func TestCanExecuteLimitBuySatisfiedWhenReachablePriceAtOrBelow(t *testing.T) {
	t.Parallel()
	ms := aWethMarket()
	o := &order.LimitOrder{
		IDVal:        common.HexToHash("0x01"),
		Buy:          true,
		PriceVal:     3.0, // reachable price (~2.0) is below this, so it should fire
		Quantity:     big.NewInt(1000),
		TokenInAddr:  tokA,
		TokenOutAddr: weth,
	}
	require.True(t, canExecute(ms, o, weth))
}

func TestCanExecuteLimitBuyNotSatisfiedWhenPriceTooLow(t *testing.T) {
	t.Parallel()
	ms := aWethMarket()
	o := &order.LimitOrder{
		IDVal:        common.HexToHash("0x01"),
		Buy:          true,
		PriceVal:     0.5, // reachable price (~2.0) exceeds this
		Quantity:     big.NewInt(1000),
		TokenInAddr:  tokA,
		TokenOutAddr: weth,
	}
	require.False(t, canExecute(ms, o, weth))
}

func TestCanExecuteLimitSellSatisfiedWhenReachablePriceAtOrAbove(t *testing.T) {
	t.Parallel()
	ms := aWethMarket()
	o := &order.LimitOrder{
		IDVal:        common.HexToHash("0x01"),
		Buy:          false,
		PriceVal:     1.0,
		Quantity:     big.NewInt(1000),
		TokenInAddr:  tokA,
		TokenOutAddr: weth,
	}
	require.True(t, canExecute(ms, o, weth))
}

func TestCanExecuteMissingMarketReturnsFalse(t *testing.T) {
	t.Parallel()
	ms := pool.NewMarketSet()
	o := &order.LimitOrder{
		IDVal:        common.HexToHash("0x01"),
		Buy:          true,
		PriceVal:     10.0,
		Quantity:     big.NewInt(1000),
		TokenInAddr:  tokA,
		TokenOutAddr: weth,
	}
	require.False(t, canExecute(ms, o, weth))
}

func TestCanExecuteSandboxSatisfiedByDirectHop(t *testing.T) {
	t.Parallel()
	ms := aWethMarket()
	o := &order.SandboxLimitOrder{
		IDVal:             common.HexToHash("0x02"),
		PriceVal:          1.0,
		AmountInRemaining: big.NewInt(1000),
		TokenInAddr:       tokA,
		TokenOutAddr:      weth,
	}
	require.True(t, canExecute(ms, o, weth))
}

func TestFilterByBalanceDropsUnderfundedOrders(t *testing.T) {
	t.Parallel()
	owner1 := common.HexToAddress("0x9999999999999999999999999999999999999999")
	owner2 := common.HexToAddress("0x8888888888888888888888888888888888888888")

	funded := &order.LimitOrder{IDVal: common.HexToHash("0x01"), OwnerAddr: owner1, Quantity: big.NewInt(500), TokenInAddr: tokA}
	underfunded := &order.LimitOrder{IDVal: common.HexToHash("0x02"), OwnerAddr: owner2, Quantity: big.NewInt(500), TokenInAddr: tokA}

	client := fakeClient{balances: map[common.Address]*big.Int{
		owner1: big.NewInt(1000),
		owner2: big.NewInt(10),
	}}

	out, err := filterByBalance(context.Background(), client, []order.Order{funded, underfunded}, 4)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, funded.ID(), out[0].ID())
}

func TestRunSandboxSimulatorGroupsByPoolAndDoesNotMutateOriginal(t *testing.T) {
	t.Parallel()
	ms := aWethMarket()
	originalReserve := new(big.Int).Set(ms.Markets[pool.MarketID(tokA, weth)].Pools[poolX].Reserve0)

	orders := []*order.SandboxLimitOrder{
		{IDVal: common.HexToHash("0x01"), PriceVal: 1.0, AmountInRemaining: big.NewInt(100), TokenInAddr: tokA, TokenOutAddr: weth},
		{IDVal: common.HexToHash("0x02"), PriceVal: 1.0, AmountInRemaining: big.NewInt(200), TokenInAddr: tokA, TokenOutAddr: weth},
	}

	clone := ms.Clone()
	bundle, _, err := RunSandboxSimulator(context.Background(), fakeClient{}, nil, orders, clone, weth, common.HexToAddress("0xc0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0"))
	require.NoError(t, err)
	require.Len(t, bundle.OrderIDBundles, 1)
	require.Len(t, bundle.OrderIDBundles[0], 2)
	require.Len(t, bundle.Calls, 1)

	// The order arrived sorted ascending by amount_in, so order 0x01 (100)
	// fills before 0x02 (200).
	require.Equal(t, common.HexToHash("0x01"), bundle.OrderIDBundles[0][0])

	// Original market set is untouched.
	require.Equal(t, 0, originalReserve.Cmp(ms.Markets[pool.MarketID(tokA, weth)].Pools[poolX].Reserve0))
}

func TestRunSandboxSimulatorEmptyOrdersReturnsEmptyBundle(t *testing.T) {
	t.Parallel()
	ms := aWethMarket()
	bundle, returned, err := RunSandboxSimulator(context.Background(), fakeClient{}, nil, nil, ms, weth, common.Address{})
	require.NoError(t, err)
	require.Empty(t, bundle.OrderIDBundles)
	require.Same(t, ms, returned)
}

func TestRunLimitOrderSimulatorGroupsByFirstHopPool(t *testing.T) {
	t.Parallel()
	ms := aWethMarket()

	orders := []*order.LimitOrder{
		{IDVal: common.HexToHash("0x01"), Buy: true, PriceVal: 100.0, Quantity: big.NewInt(100), TokenInAddr: tokA, TokenOutAddr: weth},
		{IDVal: common.HexToHash("0x02"), Buy: true, PriceVal: 100.0, Quantity: big.NewInt(200), TokenInAddr: tokA, TokenOutAddr: weth},
	}

	bundle, updated, err := RunLimitOrderSimulator(context.Background(), fakeClient{}, nil, orders, ms, weth)
	require.NoError(t, err)
	require.Len(t, bundle.OrderGroups, 1)
	require.Len(t, bundle.OrderGroups[0].OrderIDs, 2)
	require.NotNil(t, updated)
}
