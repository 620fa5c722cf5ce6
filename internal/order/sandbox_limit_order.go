package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SandboxLimitOrder is the on-chain sandbox limit-order variant (spec.md
// §3). It tracks remaining-fill accounting so it can be partially executed
// across multiple blocks.
type SandboxLimitOrder struct {
	IDVal                     common.Hash
	LastRefreshVal            uint32
	ExpirationVal             uint32
	FillPercent               *big.Int
	FeeRemaining              *big.Int
	AmountInRemaining         *big.Int
	AmountOutRemaining        *big.Int
	PriceVal                  float64
	ExecutionCreditRemaining  *big.Int
	OwnerAddr                 common.Address
	TokenInAddr               common.Address
	TokenOutAddr              common.Address

	decIn, decOut uint8
}

var _ Order = (*SandboxLimitOrder)(nil)

func (o *SandboxLimitOrder) ID() common.Hash         { return o.IDVal }
func (o *SandboxLimitOrder) Variant() Variant        { return VariantSandbox }
func (o *SandboxLimitOrder) Owner() common.Address   { return o.OwnerAddr }
func (o *SandboxLimitOrder) TokenIn() common.Address { return o.TokenInAddr }
func (o *SandboxLimitOrder) TokenOut() common.Address { return o.TokenOutAddr }
func (o *SandboxLimitOrder) AmountIn() *big.Int      { return o.AmountInRemaining }
func (o *SandboxLimitOrder) Expiration() uint32      { return o.ExpirationVal }
func (o *SandboxLimitOrder) LastRefresh() uint32     { return o.LastRefreshVal }
func (o *SandboxLimitOrder) Price() float64          { return o.PriceVal }

// NewSandboxLimitOrderFromChain builds a SandboxLimitOrder from raw
// on-chain fields, computing price as (amountOut/10^decOut)/(amountIn/10^decIn)
// per spec.md §3. decIn/decOut are fetched once by the caller (the token
// decimals never change).
func NewSandboxLimitOrderFromChain(
	id common.Hash,
	lastRefresh, expiration uint32,
	fillPercent, feeRemaining, amountInRemaining, amountOutRemaining, executionCreditRemaining *big.Int,
	owner, tokenIn, tokenOut common.Address,
	decIn, decOut uint8,
) *SandboxLimitOrder {
	o := &SandboxLimitOrder{
		IDVal:                    id,
		LastRefreshVal:           lastRefresh,
		ExpirationVal:            expiration,
		FillPercent:              fillPercent,
		FeeRemaining:             feeRemaining,
		AmountInRemaining:        amountInRemaining,
		AmountOutRemaining:       amountOutRemaining,
		ExecutionCreditRemaining: executionCreditRemaining,
		OwnerAddr:                owner,
		TokenInAddr:              tokenIn,
		TokenOutAddr:             tokenOut,
		decIn:                    decIn,
		decOut:                   decOut,
	}
	o.recomputePrice()
	return o
}

// recomputePrice scales the two raw integer amounts down by their token's
// decimals using shopspring/decimal's exponent rather than a manual
// big.Float division, then converts to the F64 spec.md §3 compares against
// pool-implied prices.
func (o *SandboxLimitOrder) recomputePrice() {
	if o.AmountInRemaining == nil || o.AmountInRemaining.Sign() == 0 {
		o.PriceVal = 0
		return
	}
	den := decimalFromRaw(o.AmountInRemaining, o.decIn)
	if den.IsZero() {
		o.PriceVal = 0
		return
	}
	num := decimalFromRaw(o.AmountOutRemaining, o.decOut)
	price, _ := num.Div(den).Float64()
	o.PriceVal = price
}

// decimalFromRaw interprets v as a raw on-chain integer with decimals
// fractional digits, treating a nil amount (not yet set) as zero.
func decimalFromRaw(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

// ApplyPartialFill patches the remaining-amount fields in place — the fix
// for spec.md §9's Open Question (the on-chain source's OrderPartialFilled
// handler is a documented no-op; this repo patches the order body).
func (o *SandboxLimitOrder) ApplyPartialFill(amountInRemaining, amountOutRemaining, executionCreditRemaining, feeRemaining *big.Int) {
	o.AmountInRemaining = amountInRemaining
	o.AmountOutRemaining = amountOutRemaining
	o.ExecutionCreditRemaining = executionCreditRemaining
	o.FeeRemaining = feeRemaining
	o.recomputePrice()
}

// ApplyRefresh patches the refresh timestamps in place.
func (o *SandboxLimitOrder) ApplyRefresh(lastRefresh, expiration uint32) {
	o.LastRefreshVal = lastRefresh
	o.ExpirationVal = expiration
}

// ApplyExecutionCreditUpdate patches execution credit in place.
func (o *SandboxLimitOrder) ApplyExecutionCreditUpdate(credit *big.Int) {
	o.ExecutionCreditRemaining = credit
}
