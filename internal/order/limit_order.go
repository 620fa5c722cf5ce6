package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LimitOrder is the on-chain limit-order variant (spec.md §3). Price is
// already normalized to F64 by the time it is constructed via
// NewLimitOrderFromChain.
type LimitOrder struct {
	IDVal              common.Hash
	Buy                bool
	Taxed              bool
	StopLoss           bool
	LastRefreshVal     uint32
	ExpirationVal      uint32
	FeeIn              uint32
	FeeOut             uint32
	TaxIn              uint16
	PriceVal           float64
	AmountOutMin       *big.Int
	Quantity           *big.Int
	ExecutionCredit    *big.Int
	OwnerAddr          common.Address
	TokenInAddr        common.Address
	TokenOutAddr       common.Address
}

var _ Order = (*LimitOrder)(nil)

func (o *LimitOrder) ID() common.Hash             { return o.IDVal }
func (o *LimitOrder) Variant() Variant             { return VariantLimit }
func (o *LimitOrder) Owner() common.Address        { return o.OwnerAddr }
func (o *LimitOrder) TokenIn() common.Address      { return o.TokenInAddr }
func (o *LimitOrder) TokenOut() common.Address     { return o.TokenOutAddr }
func (o *LimitOrder) AmountIn() *big.Int           { return o.Quantity }
func (o *LimitOrder) Expiration() uint32           { return o.ExpirationVal }
func (o *LimitOrder) LastRefresh() uint32          { return o.LastRefreshVal }
func (o *LimitOrder) Price() float64               { return o.PriceVal }

// NewLimitOrderFromChain builds a LimitOrder from raw on-chain fields,
// normalizing the raw U128 price per spec.md §3.
func NewLimitOrderFromChain(
	id common.Hash,
	buy, taxed, stopLoss bool,
	lastRefresh, expiration uint32,
	feeIn, feeOut uint32,
	taxIn uint16,
	rawPrice *big.Int,
	amountOutMin, quantity, executionCredit *big.Int,
	owner, tokenIn, tokenOut common.Address,
) *LimitOrder {
	return &LimitOrder{
		IDVal:           id,
		Buy:             buy,
		Taxed:           taxed,
		StopLoss:        stopLoss,
		LastRefreshVal:  lastRefresh,
		ExpirationVal:   expiration,
		FeeIn:           feeIn,
		FeeOut:          feeOut,
		TaxIn:           taxIn,
		PriceVal:        NormalizeU128Price(rawPrice),
		AmountOutMin:    amountOutMin,
		Quantity:        quantity,
		ExecutionCredit: executionCredit,
		OwnerAddr:       owner,
		TokenInAddr:     tokenIn,
		TokenOutAddr:    tokenOut,
	}
}

// ApplyPartialFill patches the fields spec.md §9's Open Question says the
// on-chain source leaves untouched on OrderPartialFilled. A LimitOrder's
// quantity decreases by the filled amount; amount_out_min and execution
// credit track the remainder. feeRemaining is ignored: unlike
// SandboxLimitOrder, a LimitOrder has no remaining-fee field — FeeOut is
// the book's configured fee rate (original_source/src/order/limit_order.rs
// has no fee_remaining member), not an amount that decays as the order fills.
func (o *LimitOrder) ApplyPartialFill(amountInRemaining, amountOutRemaining, executionCreditRemaining, feeRemaining *big.Int) {
	o.Quantity = amountInRemaining
	o.AmountOutMin = amountOutRemaining
	o.ExecutionCredit = executionCreditRemaining
}

// ApplyRefresh patches the refresh timestamps (spec.md §3 lifecycle:
// "OrderRefreshed ... patch timestamps").
func (o *LimitOrder) ApplyRefresh(lastRefresh, expiration uint32) {
	o.LastRefreshVal = lastRefresh
	o.ExpirationVal = expiration
}

// ApplyExecutionCreditUpdate patches execution credit in place.
func (o *LimitOrder) ApplyExecutionCreditUpdate(credit *big.Int) {
	o.ExecutionCredit = credit
}
