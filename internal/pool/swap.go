package pool

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrZeroLiquidity is returned when a swap is attempted against a pool with
// no reserves/liquidity on the requested side.
var ErrZeroLiquidity = errors.New("pool: zero liquidity")

const feeDenominator = 10_000

// SimulateSwap computes the output amount for swapping amountIn of tokenIn
// through the pool without mutating it (spec.md §3: "simulate_swap(token_in,
// amount_in) -> amount_out (pure)").
func (p *Pool) SimulateSwap(tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	switch p.Variant {
	case VariantV2:
		return p.simulateSwapV2(tokenIn, amountIn)
	default:
		return p.simulateSwapV3(tokenIn, amountIn)
	}
}

// SimulateSwapMut computes the output amount and commits the new reserve /
// sqrt-price state to the pool in place (spec.md §3: "simulate_swap_mut").
func (p *Pool) SimulateSwapMut(tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	switch p.Variant {
	case VariantV2:
		return p.swapV2(tokenIn, amountIn, true)
	default:
		return p.swapV3(tokenIn, amountIn, true)
	}
}

func (p *Pool) simulateSwapV2(tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	return p.swapV2(tokenIn, amountIn, false)
}

// swapV2 implements the constant-product formula with the pool's fee taken
// out of the input, x*y=k: amountOut = (amountIn*(1-fee)*reserveOut) /
// (reserveIn + amountIn*(1-fee)).
func (p *Pool) swapV2(tokenIn common.Address, amountIn *big.Int, mutate bool) (*big.Int, error) {
	reserveIn, reserveOut := p.Reserve0, p.Reserve1
	if tokenIn == p.TokenB {
		reserveIn, reserveOut = p.Reserve1, p.Reserve0
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, ErrZeroLiquidity
	}

	feeMultiplier := big.NewInt(feeDenominator - int64(p.FeeBps))
	amountInWithFee := new(big.Int).Mul(amountIn, feeMultiplier)

	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(feeDenominator))
	denominator.Add(denominator, amountInWithFee)

	amountOut := new(big.Int).Div(numerator, denominator)

	if mutate {
		newReserveIn := new(big.Int).Add(reserveIn, amountIn)
		newReserveOut := new(big.Int).Sub(reserveOut, amountOut)
		if tokenIn == p.TokenB {
			p.Reserve1, p.Reserve0 = newReserveIn, newReserveOut
		} else {
			p.Reserve0, p.Reserve1 = newReserveIn, newReserveOut
		}
	}

	return amountOut, nil
}

// swapV3 approximates a single-tick concentrated-liquidity swap using the
// pool's current sqrt-price and liquidity, without crossing ticks. The
// exact tick-crossing math is the Pool capability spec.md §1 treats as an
// external concern; this repo provides a working, self-consistent
// implementation of that capability rather than a precise Uniswap V3
// replica.
func (p *Pool) swapV3(tokenIn common.Address, amountIn *big.Int, mutate bool) (*big.Int, error) {
	if p.Liquidity == nil || p.Liquidity.Sign() == 0 || p.SqrtPriceX96 == nil || p.SqrtPriceX96.IsZero() {
		return nil, ErrZeroLiquidity
	}

	q96 := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	liquidity, overflow := uint256.FromBig(p.Liquidity)
	if overflow {
		return nil, errors.New("pool: liquidity overflow")
	}
	amtIn, overflow := uint256.FromBig(amountIn)
	if overflow {
		return nil, errors.New("pool: amount overflow")
	}

	// Apply the fee to the input before computing the price move.
	amtInWithFee := new(uint256.Int).Mul(amtIn, uint256.NewInt(feeDenominator-uint64(p.FeeBps)))
	amtInWithFee.Div(amtInWithFee, uint256.NewInt(feeDenominator))

	var amountOut *uint256.Int
	var newSqrtPrice *uint256.Int

	zeroForOne := tokenIn == p.TokenA
	if zeroForOne {
		// token0 in: sqrtP' = L*Q96*sqrtP / (L*Q96 + amountIn*sqrtP)
		num := new(uint256.Int).Mul(liquidity, q96)
		num.Mul(num, p.SqrtPriceX96)
		denom := new(uint256.Int).Mul(liquidity, q96)
		tmp := new(uint256.Int).Mul(amtInWithFee, p.SqrtPriceX96)
		denom.Add(denom, tmp)
		if denom.IsZero() {
			return nil, ErrZeroLiquidity
		}
		newSqrtPrice = new(uint256.Int).Div(num, denom)

		// amountOut (token1) = L*(sqrtP - sqrtP') / Q96
		diff := new(uint256.Int).Sub(p.SqrtPriceX96, newSqrtPrice)
		amountOut = new(uint256.Int).Mul(liquidity, diff)
		amountOut.Div(amountOut, q96)
	} else {
		// token1 in: sqrtP' = sqrtP + amountIn*Q96/L
		delta := new(uint256.Int).Mul(amtInWithFee, q96)
		delta.Div(delta, liquidity)
		newSqrtPrice = new(uint256.Int).Add(p.SqrtPriceX96, delta)

		// amountOut (token0) = L*Q96*(1/sqrtP - 1/sqrtP') = L*Q96*(sqrtP'-sqrtP)/(sqrtP*sqrtP')
		diff := new(uint256.Int).Sub(newSqrtPrice, p.SqrtPriceX96)
		num := new(uint256.Int).Mul(liquidity, q96)
		num.Mul(num, diff)
		denom := new(uint256.Int).Mul(p.SqrtPriceX96, newSqrtPrice)
		if denom.IsZero() {
			return nil, ErrZeroLiquidity
		}
		amountOut = num.Div(num, denom)
	}

	if mutate {
		p.SqrtPriceX96 = newSqrtPrice
	}

	return amountOut.ToBig(), nil
}

// Price returns the pool's current mid-price quoted in terms of base:
// units of the other token per one unit of base.
func (p *Pool) Price(base common.Address) float64 {
	switch p.Variant {
	case VariantV2:
		return p.priceV2(base)
	default:
		return p.priceV3(base)
	}
}

func (p *Pool) priceV2(base common.Address) float64 {
	if p.Reserve0 == nil || p.Reserve1 == nil || p.Reserve0.Sign() == 0 || p.Reserve1.Sign() == 0 {
		return 0
	}
	r0 := new(big.Float).SetInt(p.Reserve0)
	r1 := new(big.Float).SetInt(p.Reserve1)
	var ratio *big.Float
	if base == p.TokenA {
		// price of A in terms of B = reserve1/reserve0
		ratio = new(big.Float).Quo(r1, r0)
	} else {
		ratio = new(big.Float).Quo(r0, r1)
	}
	f, _ := ratio.Float64()
	return f
}

func (p *Pool) priceV3(base common.Address) float64 {
	if p.SqrtPriceX96 == nil || p.SqrtPriceX96.IsZero() {
		return 0
	}
	sqrtP := new(big.Float).SetInt(p.SqrtPriceX96.ToBig())
	q96 := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
	ratio := new(big.Float).Quo(sqrtP, q96)
	ratio.Mul(ratio, ratio) // (sqrtP/Q96)^2 = price of token1 in token0

	priceToken1PerToken0, _ := ratio.Float64()
	if priceToken1PerToken0 == 0 {
		return 0
	}
	if base == p.TokenA {
		return priceToken1PerToken0
	}
	return 1 / priceToken1PerToken0
}
