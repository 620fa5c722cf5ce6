package order

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNormalizeU128Price(t *testing.T) {
	t.Parallel()
	// raw == 2^64-1 should normalize to 1.0 exactly.
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
	got := NormalizeU128Price(max)
	if got != 1.0 {
		t.Fatalf("NormalizeU128Price(max) = %v, want 1.0", got)
	}
}

func TestSandboxLimitOrderPriceFromDecimals(t *testing.T) {
	t.Parallel()
	// amountIn = 1 WETH (18 decimals), amountOut = 1500 TKN (6 decimals)
	amountIn := new(big.Int).Mul(big.NewInt(1), pow10(18))
	amountOut := new(big.Int).Mul(big.NewInt(1500), pow10(6))

	o := NewSandboxLimitOrderFromChain(
		common.HexToHash("0x01"),
		0, 1000,
		big.NewInt(0), big.NewInt(0),
		amountIn, amountOut, big.NewInt(0),
		common.Address{}, common.Address{}, common.Address{},
		18, 6,
	)

	if o.Price() != 1500.0 {
		t.Fatalf("Price() = %v, want 1500.0", o.Price())
	}
}

func TestSandboxLimitOrderApplyPartialFillPatchesInPlace(t *testing.T) {
	t.Parallel()
	o := NewSandboxLimitOrderFromChain(
		common.HexToHash("0x01"),
		0, 1000,
		big.NewInt(0), big.NewInt(0),
		pow10(18), new(big.Int).Mul(big.NewInt(1500), pow10(6)), big.NewInt(0),
		common.Address{}, common.Address{}, common.Address{},
		18, 6,
	)

	half := new(big.Int).Div(pow10(18), big.NewInt(2))
	halfOut := new(big.Int).Mul(big.NewInt(750), pow10(6))
	o.ApplyPartialFill(half, halfOut, big.NewInt(5), big.NewInt(1))

	if o.AmountInRemaining.Cmp(half) != 0 {
		t.Fatalf("AmountInRemaining not patched: %s", o.AmountInRemaining)
	}
	if o.ExecutionCreditRemaining.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("ExecutionCreditRemaining not patched: %s", o.ExecutionCreditRemaining)
	}
	if o.Price() != 1500.0 {
		t.Fatalf("price should be unchanged by a proportional fill, got %v", o.Price())
	}
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}
