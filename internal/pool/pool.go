// Package pool models the two AMM pool variants the executor routes
// through (constant-product "V2" and concentrated-liquidity "V3"), the
// markets they group into, and the deterministic market identifier.
//
// This is the leaf of the dependency graph (spec.md §2: "Pool model",
// relative share 10%): nothing here depends on order, state, or router.
package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Variant distinguishes the two supported pool shapes.
type Variant uint8

const (
	VariantV2 Variant = iota
	VariantV3
)

func (v Variant) String() string {
	if v == VariantV3 {
		return "v3"
	}
	return "v2"
}

// Pool is the tagged variant described in spec.md §3. TokenA is always the
// lexicographically smaller address (TokenA < TokenB); Dex names the DEX
// family the pool belongs to (used only for logging/provenance).
type Pool struct {
	Variant Variant
	Addr    common.Address
	TokenA  common.Address
	TokenB  common.Address
	FeeBps  uint32
	Dex     string

	// V2 fields.
	Reserve0 *big.Int
	Reserve1 *big.Int

	// V3 fields.
	SqrtPriceX96 *uint256.Int
	Liquidity    *big.Int
	Tick         int32
}

// NewV2 constructs a constant-product pool, ordering tokens by address.
func NewV2(addr, tokenA, tokenB common.Address, reserve0, reserve1 *big.Int, feeBps uint32, dex string) *Pool {
	a, b, r0, r1 := orderTokens(tokenA, tokenB, reserve0, reserve1)
	return &Pool{
		Variant:  VariantV2,
		Addr:     addr,
		TokenA:   a,
		TokenB:   b,
		FeeBps:   feeBps,
		Dex:      dex,
		Reserve0: r0,
		Reserve1: r1,
	}
}

// NewV3 constructs a concentrated-liquidity pool, ordering tokens by
// address. sqrtPriceX96 and liquidity are taken as given by the chain —
// this package does not reinterpret tick ranges.
func NewV3(addr, tokenA, tokenB common.Address, sqrtPriceX96 *uint256.Int, liquidity *big.Int, feeBps uint32, tick int32, dex string) *Pool {
	a, b := tokenA, tokenB
	if !addressLess(a, b) {
		a, b = b, a
	}
	return &Pool{
		Variant:      VariantV3,
		Addr:         addr,
		TokenA:       a,
		TokenB:       b,
		FeeBps:       feeBps,
		Dex:          dex,
		SqrtPriceX96: sqrtPriceX96,
		Liquidity:    liquidity,
		Tick:         tick,
	}
}

func orderTokens(tokenA, tokenB common.Address, r0, r1 *big.Int) (common.Address, common.Address, *big.Int, *big.Int) {
	if addressLess(tokenA, tokenB) {
		return tokenA, tokenB, r0, r1
	}
	return tokenB, tokenA, r1, r0
}

func addressLess(a, b common.Address) bool {
	return new(big.Int).SetBytes(a.Bytes()).Cmp(new(big.Int).SetBytes(b.Bytes())) < 0
}

// Address returns the pool contract's on-chain address.
func (p *Pool) Address() common.Address { return p.Addr }

// Fee returns the pool's fee in basis points.
func (p *Pool) Fee() uint32 { return p.FeeBps }

// OtherToken returns the token on the opposite side of tokenIn within this
// pool. Panics if tokenIn is not one of the pool's two tokens — callers
// must only invoke this after confirming tokenIn belongs to the pool.
func (p *Pool) OtherToken(tokenIn common.Address) common.Address {
	switch tokenIn {
	case p.TokenA:
		return p.TokenB
	case p.TokenB:
		return p.TokenA
	default:
		panic(fmt.Sprintf("pool %s: token %s is not a member", p.Addr, tokenIn))
	}
}

// Clone returns a deep copy of the pool so the simulator can mutate a
// scratch market set without affecting the authoritative one (spec.md §5,
// "Cloning").
func (p *Pool) Clone() *Pool {
	cp := *p
	if p.Reserve0 != nil {
		cp.Reserve0 = new(big.Int).Set(p.Reserve0)
	}
	if p.Reserve1 != nil {
		cp.Reserve1 = new(big.Int).Set(p.Reserve1)
	}
	if p.SqrtPriceX96 != nil {
		cp.SqrtPriceX96 = new(uint256.Int).Set(p.SqrtPriceX96)
	}
	if p.Liquidity != nil {
		cp.Liquidity = new(big.Int).Set(p.Liquidity)
	}
	return &cp
}

// MarketID computes the deterministic, symmetric market identifier for an
// unordered token pair: keccak256 of the two addresses concatenated after
// ordering by numeric magnitude, so MarketID(a,b) == MarketID(b,a).
func MarketID(a, b common.Address) common.Hash {
	lo, hi := a, b
	if !addressLess(lo, hi) {
		lo, hi = hi, lo
	}
	return crypto.Keccak256Hash(lo.Bytes(), hi.Bytes())
}
