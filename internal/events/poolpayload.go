package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// poolPayloadABI decodes the two pool-event bodies the loop driver needs
// turned into state.DecodedPoolLog before it can call Actor.ApplyPoolEvents.
// A real Uniswap V3 Swap indexes sender/recipient; this port only needs
// sqrtPriceX96/liquidity/tick, so every field here is marked non-indexed to
// stay consistent with how topicV3Swap is computed in kind.go (a plain
// Keccak256 of the full signature, not the indexed subset).
var poolPayloadABI = mustParseEventsABI(`[
  {"anonymous":false,"inputs":[{"indexed":false,"name":"reserve0","type":"uint112"},{"indexed":false,"name":"reserve1","type":"uint112"}],"name":"Sync","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"sender","type":"address"},{"indexed":false,"name":"recipient","type":"address"},{"indexed":false,"name":"amount0","type":"int256"},{"indexed":false,"name":"amount1","type":"int256"},{"indexed":false,"name":"sqrtPriceX96","type":"uint160"},{"indexed":false,"name":"liquidity","type":"uint128"},{"indexed":false,"name":"tick","type":"int24"}],"name":"Swap","type":"event"}
]`)

// V2SyncPayload is a Uniswap V2-shaped Sync log's decoded body.
type V2SyncPayload struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// DecodeV2Sync unpacks a V2Sync-classified log.
func DecodeV2Sync(lg ethtypes.Log) (V2SyncPayload, error) {
	var out V2SyncPayload
	err := poolPayloadABI.UnpackIntoInterface(&out, "Sync", lg.Data)
	return out, err
}

// V3SwapPayload is a Uniswap V3-shaped Swap log's decoded body, trimmed to
// the fields that affect a pool's simulated price (amount0/amount1 are
// decoded as part of the ABI but discarded — the state machine only cares
// about the pool's resulting sqrtPriceX96/liquidity/tick).
type V3SwapPayload struct {
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
}

// DecodeV3Swap unpacks a V3Swap-classified log.
func DecodeV3Swap(lg ethtypes.Log) (V3SwapPayload, error) {
	var raw struct {
		Sender       common.Address
		Recipient    common.Address
		Amount0      *big.Int
		Amount1      *big.Int
		SqrtPriceX96 *big.Int
		Liquidity    *big.Int
		Tick         *big.Int
	}
	if err := poolPayloadABI.UnpackIntoInterface(&raw, "Swap", lg.Data); err != nil {
		return V3SwapPayload{}, err
	}
	return V3SwapPayload{
		SqrtPriceX96: raw.SqrtPriceX96,
		Liquidity:    raw.Liquidity,
		Tick:         int32(raw.Tick.Int64()),
	}, nil
}

// OrderPlacedTopic exposes topicOrderPlaced for the loop driver's start-up
// replay, which only ever needs to page this one signature (spec.md §4.7
// step 2) — pool addresses and cancellation/fill topics are irrelevant to
// rebuilding the active-order set from history.
func OrderPlacedTopic() common.Hash { return topicOrderPlaced }

// SqrtPrice converts a decoded V3SwapPayload.SqrtPriceX96 into the
// uint256.Int the pool package's Q96 math operates on.
func (p V3SwapPayload) SqrtPrice() *uint256.Int {
	out := new(uint256.Int)
	out.SetFromBig(p.SqrtPriceX96)
	return out
}
