package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	tokenWETH = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenTKN  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestMarketIDSymmetric(t *testing.T) {
	t.Parallel()
	a := MarketID(tokenWETH, tokenTKN)
	b := MarketID(tokenTKN, tokenWETH)
	if a != b {
		t.Fatalf("MarketID not symmetric: %s != %s", a, b)
	}
}

func TestV2SimulateSwap(t *testing.T) {
	t.Parallel()
	// reserves: WETH=100, TKN=140_000 (price ~1400 TKN per WETH)
	p := NewV2(common.HexToAddress("0xpool"), tokenWETH, tokenTKN,
		big.NewInt(100), big.NewInt(140_000), 30, "uniswap-v2")

	out, err := p.SimulateSwap(tokenWETH, big.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Sign() <= 0 {
		t.Fatalf("expected positive output, got %s", out)
	}

	// Pure simulate must not mutate reserves.
	if p.Reserve0.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("SimulateSwap mutated reserves: %s", p.Reserve0)
	}
}

func TestV2SimulateSwapMutCommits(t *testing.T) {
	t.Parallel()
	p := NewV2(common.HexToAddress("0xpool"), tokenWETH, tokenTKN,
		big.NewInt(100), big.NewInt(140_000), 30, "uniswap-v2")

	before0, before1 := new(big.Int).Set(p.Reserve0), new(big.Int).Set(p.Reserve1)

	out, err := p.SimulateSwapMut(tokenWETH, big.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantReserve0 := new(big.Int).Add(before0, big.NewInt(1))
	wantReserve1 := new(big.Int).Sub(before1, out)
	if p.Reserve0.Cmp(wantReserve0) != 0 {
		t.Fatalf("reserve0 = %s, want %s", p.Reserve0, wantReserve0)
	}
	if p.Reserve1.Cmp(wantReserve1) != 0 {
		t.Fatalf("reserve1 = %s, want %s", p.Reserve1, wantReserve1)
	}
}

func TestV2PriceIncreasesAfterSync(t *testing.T) {
	t.Parallel()
	p := NewV2(common.HexToAddress("0xpool"), tokenWETH, tokenTKN,
		big.NewInt(100), big.NewInt(140_000), 30, "uniswap-v2")

	before := p.Price(tokenWETH)

	p.Reserve0 = big.NewInt(100)
	p.Reserve1 = big.NewInt(160_000)

	after := p.Price(tokenWETH)
	if !(after > before) {
		t.Fatalf("expected price to increase, before=%v after=%v", before, after)
	}
}

func TestCloneIsolatesMutation(t *testing.T) {
	t.Parallel()
	ms := NewMarketSet()
	p := NewV2(common.HexToAddress("0xpool"), tokenWETH, tokenTKN,
		big.NewInt(100), big.NewInt(140_000), 30, "uniswap-v2")
	ms.AddPool(tokenWETH, tokenTKN, p)

	clone := ms.Clone()
	m, ok := clone.Get(MarketID(tokenWETH, tokenTKN))
	if !ok {
		t.Fatal("clone missing market")
	}
	clonedPool := m.Pools[p.Addr]
	if _, err := clonedPool.SimulateSwapMut(tokenWETH, big.NewInt(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orig, _ := ms.Get(MarketID(tokenWETH, tokenTKN))
	origPool := orig.Pools[p.Addr]
	if origPool.Reserve0.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("mutation leaked into original: reserve0=%s", origPool.Reserve0)
	}
}

func TestOtherTokenPanicsForForeignToken(t *testing.T) {
	t.Parallel()
	p := NewV2(common.HexToAddress("0xpool"), tokenWETH, tokenTKN,
		big.NewInt(100), big.NewInt(140_000), 30, "uniswap-v2")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for foreign token")
		}
	}()
	p.OtherToken(common.HexToAddress("0xdead"))
}
