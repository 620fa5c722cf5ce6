package state

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/coexerr"
	"github.com/conveyorlabs/coex/internal/order"
)

// BookReader fetches the current on-chain body of an order by id, the
// "fetched by id from the book" step spec.md §4.2 describes for
// OrderPlaced/OrderUpdated. The book's ABI is, like Pool's AMM math, an
// external contract surface the state machine consumes rather than
// defines — this is its concrete adapter.
type BookReader interface {
	FetchLimitOrder(ctx context.Context, client chain.Client, bookAddr common.Address, id common.Hash) (*order.LimitOrder, error)
	FetchSandboxOrder(ctx context.Context, client chain.Client, bookAddr common.Address, id common.Hash) (*order.SandboxLimitOrder, error)
	// TokenDecimals fetches an ERC-20's decimals() once, for sandbox order
	// price normalization.
	TokenDecimals(ctx context.Context, client chain.Client, token common.Address) (uint8, error)
}

var (
	limitOrderABI = mustParseABI(`[{"constant":true,"inputs":[{"name":"id","type":"bytes32"}],"name":"getLimitOrder","outputs":[{"components":[{"name":"buy","type":"bool"},{"name":"taxed","type":"bool"},{"name":"stopLoss","type":"bool"},{"name":"lastRefreshTimestamp","type":"uint32"},{"name":"expirationTimestamp","type":"uint32"},{"name":"feeIn","type":"uint32"},{"name":"feeOut","type":"uint32"},{"name":"taxIn","type":"uint16"},{"name":"price","type":"uint128"},{"name":"amountOutMin","type":"uint128"},{"name":"quantity","type":"uint128"},{"name":"executionCreditRemaining","type":"uint128"},{"name":"owner","type":"address"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"}],"name":"order","type":"tuple"}],"type":"function"}]`)
	sandboxOrderABI = mustParseABI(`[{"constant":true,"inputs":[{"name":"id","type":"bytes32"}],"name":"getSandboxLimitOrder","outputs":[{"components":[{"name":"lastRefreshTimestamp","type":"uint32"},{"name":"expirationTimestamp","type":"uint32"},{"name":"fillPercent","type":"uint128"},{"name":"feeRemaining","type":"uint128"},{"name":"amountInRemaining","type":"uint128"},{"name":"amountOutRemaining","type":"uint128"},{"name":"executionCreditRemaining","type":"uint128"},{"name":"owner","type":"address"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"}],"name":"order","type":"tuple"}],"type":"function"}]`)
	erc20DecimalsABI = mustParseABI(`[{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}]`)
)

func mustParseABI(js string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(err)
	}
	return a
}

// ChainBookReader is the production BookReader, reading both books via
// plain eth_call the same way internal/dex reads factory/pool contracts.
type ChainBookReader struct{}

var _ BookReader = ChainBookReader{}

func (ChainBookReader) FetchLimitOrder(ctx context.Context, client chain.Client, bookAddr common.Address, id common.Hash) (*order.LimitOrder, error) {
	data, err := limitOrderABI.Pack("getLimitOrder", id)
	if err != nil {
		return nil, coexerr.Provider("pack getLimitOrder", err)
	}
	out, err := client.CallContract(ctx, bookAddr, data)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Buy                      bool
		Taxed                    bool
		StopLoss                 bool
		LastRefreshTimestamp     uint32
		ExpirationTimestamp      uint32
		FeeIn                    uint32
		FeeOut                   uint32
		TaxIn                    uint16
		Price                    *big.Int
		AmountOutMin             *big.Int
		Quantity                 *big.Int
		ExecutionCreditRemaining *big.Int
		Owner                    common.Address
		TokenIn                  common.Address
		TokenOut                 common.Address
	}
	if err := limitOrderABI.UnpackIntoInterface(&raw, "getLimitOrder", out); err != nil {
		return nil, coexerr.Decode("unpack getLimitOrder", err)
	}

	return order.NewLimitOrderFromChain(
		id, raw.Buy, raw.Taxed, raw.StopLoss,
		raw.LastRefreshTimestamp, raw.ExpirationTimestamp,
		raw.FeeIn, raw.FeeOut, raw.TaxIn,
		raw.Price, raw.AmountOutMin, raw.Quantity, raw.ExecutionCreditRemaining,
		raw.Owner, raw.TokenIn, raw.TokenOut,
	), nil
}

func (ChainBookReader) FetchSandboxOrder(ctx context.Context, client chain.Client, bookAddr common.Address, id common.Hash) (*order.SandboxLimitOrder, error) {
	data, err := sandboxOrderABI.Pack("getSandboxLimitOrder", id)
	if err != nil {
		return nil, coexerr.Provider("pack getSandboxLimitOrder", err)
	}
	out, err := client.CallContract(ctx, bookAddr, data)
	if err != nil {
		return nil, err
	}

	var raw struct {
		LastRefreshTimestamp     uint32
		ExpirationTimestamp      uint32
		FillPercent              *big.Int
		FeeRemaining             *big.Int
		AmountInRemaining        *big.Int
		AmountOutRemaining       *big.Int
		ExecutionCreditRemaining *big.Int
		Owner                    common.Address
		TokenIn                  common.Address
		TokenOut                 common.Address
	}
	if err := sandboxOrderABI.UnpackIntoInterface(&raw, "getSandboxLimitOrder", out); err != nil {
		return nil, coexerr.Decode("unpack getSandboxLimitOrder", err)
	}

	decIn, err := ChainBookReader{}.TokenDecimals(ctx, client, raw.TokenIn)
	if err != nil {
		return nil, err
	}
	decOut, err := ChainBookReader{}.TokenDecimals(ctx, client, raw.TokenOut)
	if err != nil {
		return nil, err
	}

	return order.NewSandboxLimitOrderFromChain(
		id, raw.LastRefreshTimestamp, raw.ExpirationTimestamp,
		raw.FillPercent, raw.FeeRemaining, raw.AmountInRemaining, raw.AmountOutRemaining, raw.ExecutionCreditRemaining,
		raw.Owner, raw.TokenIn, raw.TokenOut, decIn, decOut,
	), nil
}

func (ChainBookReader) TokenDecimals(ctx context.Context, client chain.Client, token common.Address) (uint8, error) {
	data, err := erc20DecimalsABI.Pack("decimals")
	if err != nil {
		return 0, coexerr.Provider("pack decimals", err)
	}
	out, err := client.CallContract(ctx, token, data)
	if err != nil {
		return 0, err
	}
	var dec uint8
	if err := erc20DecimalsABI.UnpackIntoInterface(&dec, "decimals", out); err != nil {
		return 0, coexerr.Decode(fmt.Sprintf("unpack decimals for %s", token), err)
	}
	return dec, nil
}
