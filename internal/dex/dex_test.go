package dex

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/conveyorlabs/coex/internal/pool"
)

// fakeClient stubs the handful of chain.Client methods the DEX router
// exercises, keyed by callee address.
type fakeClient struct {
	byAddr map[common.Address][]byte // canned CallContract return
}

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) { return 0, nil }
func (f *fakeClient) BlockByNumber(ctx context.Context, number *big.Int) (*ethtypes.Block, error) {
	return nil, nil
}
func (f *fakeClient) SubscribeNewHead(ctx context.Context) (<-chan *ethtypes.Header, ethereum.Subscription, error) {
	return nil, nil, nil
}
func (f *fakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	return nil, nil
}
func (f *fakeClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return nil, nil
}
func (f *fakeClient) EstimateEIP1559Fees(ctx context.Context) (*big.Int, *big.Int, error) {
	return nil, nil, nil
}
func (f *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) { return nil, nil }
func (f *fakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 0, nil
}
func (f *fakeClient) FillTransaction(ctx context.Context, tx *ethtypes.Transaction, from common.Address) (*ethtypes.Transaction, error) {
	return nil, nil
}
func (f *fakeClient) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) { return nil, nil }
func (f *fakeClient) SendRawTransaction(ctx context.Context, rawTx *ethtypes.Transaction) error {
	return nil
}
func (f *fakeClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, ok := f.byAddr[to]
	if !ok {
		return nil, nil
	}
	return out, nil
}
func (f *fakeClient) BatchCall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error) {
	out := make([][]byte, len(calls))
	for i, c := range calls {
		out[i] = f.byAddr[*c.To]
	}
	return out, nil
}
func (f *fakeClient) ChainID(ctx context.Context) (*big.Int, error) { return nil, nil }
func (f *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}
func (f *fakeClient) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return nil, nil
}

func TestGetAllPoolsForPairV2SkipsZeroAddress(t *testing.T) {
	t.Parallel()

	factoryAddr := common.HexToAddress("0xf1")
	client := &fakeClient{byAddr: map[common.Address][]byte{
		factoryAddr: mustPack(v2FactoryABI, "getPair", common.Address{}),
	}}

	r := NewRouter(Config{Name: "test-v2", Factories: []Factory{{Address: factoryAddr, Variant: pool.VariantV2}}})
	pools, err := r.GetAllPoolsForPair(context.Background(), common.HexToAddress("0xa1"), common.HexToAddress("0xb2"), client)

	require.NoError(t, err)
	require.Empty(t, pools)
}

func TestGetAllPoolsForPairV2ReturnsPool(t *testing.T) {
	t.Parallel()

	factoryAddr := common.HexToAddress("0xf1")
	pairAddr := common.HexToAddress("0xcc")
	client := &fakeClient{byAddr: map[common.Address][]byte{
		factoryAddr: mustPack(v2FactoryABI, "getPair", pairAddr),
		pairAddr:    mustPack(v2PairABI, "getReserves", big.NewInt(1000), big.NewInt(2000), uint32(123)),
	}}

	r := NewRouter(Config{Name: "test-v2", Factories: []Factory{{Address: factoryAddr, Variant: pool.VariantV2, FeeBps: 30}}})
	pools, err := r.GetAllPoolsForPair(context.Background(), common.HexToAddress("0xa1"), common.HexToAddress("0xb2"), client)

	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, pairAddr, pools[0].Address())
	require.Equal(t, uint32(30), pools[0].Fee())
}

// mustPack encodes args as the *outputs* of the named method, simulating
// what a real contract call would return over the wire.
func mustPack(a abi.ABI, name string, args ...interface{}) []byte {
	out, err := a.Methods[name].Outputs.Pack(args...)
	if err != nil {
		panic(err)
	}
	return out
}
