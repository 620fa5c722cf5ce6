package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// Well-known throwaway test key (hardhat default account #0). Never used
// for anything but local unit tests.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewSignerDerivesAddress(t *testing.T) {
	t.Parallel()

	s, err := NewSigner(testPrivateKey, big.NewInt(1))
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, s.Address())
	require.Equal(t, big.NewInt(1), s.ChainID())
}

func TestSignTransactionRoundTrips(t *testing.T) {
	t.Parallel()

	s, err := NewSigner(testPrivateKey, big.NewInt(1))
	require.NoError(t, err)

	to := common.HexToAddress("0xabc")
	tx := NewDynamicFeeTx(big.NewInt(1), 0, to, big.NewInt(0), 21000, big.NewInt(100), big.NewInt(1), nil)

	signed, err := s.SignTransaction(tx)
	require.NoError(t, err)

	sender, err := types.Sender(types.NewLondonSigner(big.NewInt(1)), signed)
	require.NoError(t, err)
	require.Equal(t, s.Address(), sender)
}
