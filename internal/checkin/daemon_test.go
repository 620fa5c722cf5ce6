package checkin

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/conveyorlabs/coex/internal/config"
	"github.com/conveyorlabs/coex/internal/wallet"
)

type fakeClient struct {
	blockTime    uint64
	lastCheckIn  *big.Int
	checkInCalls int
	receiptAfter int
}

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) { return 42, nil }
func (f *fakeClient) BlockByNumber(ctx context.Context, n *big.Int) (*ethtypes.Block, error) {
	return ethtypes.NewBlockWithHeader(&ethtypes.Header{Time: f.blockTime}), nil
}
func (f *fakeClient) SubscribeNewHead(ctx context.Context) (<-chan *ethtypes.Header, ethereum.Subscription, error) {
	panic("unused")
}
func (f *fakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	panic("unused")
}
func (f *fakeClient) TransactionReceipt(ctx context.Context, h common.Hash) (*ethtypes.Receipt, error) {
	f.receiptAfter--
	if f.receiptAfter <= 0 {
		return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil
	}
	return nil, nil
}
func (f *fakeClient) EstimateEIP1559Fees(ctx context.Context) (*big.Int, *big.Int, error) {
	return big.NewInt(100), big.NewInt(2), nil
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
	f.checkInCalls++
	return nil
}
func (f *fakeClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return executorABI.Methods["lastCheckIn"].Outputs.Pack(f.lastCheckIn)
}
func (f *fakeClient) BatchCall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error) {
	panic("unused")
}
func (f *fakeClient) ChainID(ctx context.Context) (*big.Int, error) { panic("unused") }
func (f *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	panic("unused")
}
func (f *fakeClient) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	panic("unused")
}

func testSigner(t *testing.T) *wallet.Signer {
	t.Helper()
	s, err := wallet.NewSigner("0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690", big.NewInt(1))
	require.NoError(t, err)
	return s
}

func TestSubmitCheckInSendsAndWaitsForReceipt(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		blockTime:    100_000,
		lastCheckIn:  big.NewInt(0), // not read: submitCheckIn skips the due check
		receiptAfter: 1,
	}
	profile := config.Profile{Executor: common.HexToAddress("0x1000000000000000000000000000000000000d")}
	d := New(client, testSigner(t), profile, big.NewInt(1), time.Second, time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := d.submitCheckIn(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, client.checkInCalls)
}

func TestLastCheckInDecodesUint256(t *testing.T) {
	t.Parallel()
	client := &fakeClient{lastCheckIn: big.NewInt(1_234_567)}
	profile := config.Profile{Executor: common.HexToAddress("0x1000000000000000000000000000000000000d")}
	d := New(client, testSigner(t), profile, big.NewInt(1), time.Second, time.Millisecond, nil)

	got, err := d.lastCheckIn(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1_234_567), got)
}
