// Package order models the two on-chain order-book variants the executor
// tracks (spec.md §3: "Order model", relative share 10%) as a closed sum
// type with a shared capability surface, per spec.md §9's design note:
// "Order variants should be a closed sum type (tagged enum) with a shared
// capability set ... exposed through a small trait-like interface".
package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Variant identifies which on-chain book an order id belongs to.
type Variant uint8

const (
	VariantLimit Variant = iota
	VariantSandbox
)

func (v Variant) String() string {
	if v == VariantSandbox {
		return "sandbox"
	}
	return "limit"
}

// Order is the shared capability set every order variant exposes,
// independent of its concrete fields (spec.md §9).
type Order interface {
	ID() common.Hash
	Variant() Variant
	Owner() common.Address
	TokenIn() common.Address
	TokenOut() common.Address
	// AmountIn is the amount still eligible for execution: `quantity` for a
	// LimitOrder, `amount_in_remaining` for a SandboxLimitOrder.
	AmountIn() *big.Int
	Expiration() uint32
	LastRefresh() uint32
	// Price is the normalized (float64) execution price, per spec.md §3.
	Price() float64
}

// priceDivisor is 2^64 - 1, the fixed-point denominator LimitOrder prices
// are normalized against (spec.md §3).
var priceDivisor = new(big.Float).SetInt(new(big.Int).Sub(
	new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1)))

// NormalizeU128Price converts the raw on-chain U128 fixed-point price into
// the F64 the executor compares against pool-implied prices.
func NormalizeU128Price(raw *big.Int) float64 {
	f := new(big.Float).SetInt(raw)
	f.Quo(f, priceDivisor)
	out, _ := f.Float64()
	return out
}
