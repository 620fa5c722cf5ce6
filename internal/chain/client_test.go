package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestToCallArgOmitsZeroFrom(t *testing.T) {
	t.Parallel()

	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	arg := toCallArg(ethereum.CallMsg{To: &to, Data: []byte{0xab, 0xcd}})

	require.Equal(t, to.Hex(), arg["to"])
	require.Equal(t, "0xabcd", arg["data"])
	_, hasFrom := arg["from"]
	require.False(t, hasFrom)
}

func TestToCallArgIncludesFromWhenSet(t *testing.T) {
	t.Parallel()

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	from := common.HexToAddress("0x3333333333333333333333333333333333333333")
	arg := toCallArg(ethereum.CallMsg{To: &to, From: from})

	require.Equal(t, from.Hex(), arg["from"])
}
