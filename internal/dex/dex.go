// Package dex queries configured factory contracts for the pools backing a
// token pair (spec.md §6: "DEX (consumed)"). Each DEX variant encodes its
// own factory ABI and pool-state ABI; the executor's state machine only
// ever sees the resulting []*pool.Pool.
package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/coexerr"
	"github.com/conveyorlabs/coex/internal/pool"
)

// Variant identifies a factory's pool math, matching pool.Variant.
type Variant = pool.Variant

// Factory is one configured factory contract: its address, the pool variant
// it mints, the block it was deployed at (routers never need to scan
// earlier), and its swap fee in basis points (V2 factories charge a single
// fixed fee; V3 factories charge per-pool and FeeBps is ignored there).
type Factory struct {
	Address       common.Address
	Variant       Variant
	CreationBlock uint64
	FeeBps        uint32
}

// DEX is the capability spec.md §6 requires: resolve every pool backing an
// unordered token pair across all of a DEX's registered factories.
type DEX interface {
	GetAllPoolsForPair(ctx context.Context, a, b common.Address, client chain.Client) ([]*pool.Pool, error)
}

// Config is one configured DEX: a name (for logging) and its factories.
type Config struct {
	Name      string
	Factories []Factory
}

var (
	v2FactoryABI = mustParseABI(`[{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"type":"function"}]`)
	v2PairABI    = mustParseABI(`[{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"type":"function"}]`)

	v3FactoryABI = mustParseABI(`[{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],"name":"getPool","outputs":[{"name":"pool","type":"address"}],"type":"function"}]`)
	v3PoolABI    = mustParseABI(`[{"constant":true,"inputs":[],"name":"slot0","outputs":[{"name":"sqrtPriceX96","type":"uint160"},{"name":"tick","type":"int24"},{"name":"observationIndex","type":"uint16"},{"name":"observationCardinality","type":"uint16"},{"name":"observationCardinalityNext","type":"uint16"},{"name":"feeProtocol","type":"uint8"},{"name":"unlocked","type":"bool"}],"type":"function"},{"constant":true,"inputs":[],"name":"liquidity","outputs":[{"name":"","type":"uint128"}],"type":"function"},{"constant":true,"inputs":[],"name":"fee","outputs":[{"name":"","type":"uint24"}],"type":"function"}]`)

	v3StandardFeeTiers = []uint32{100, 500, 3000, 10000}
)

func mustParseABI(js string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(err)
	}
	return a
}

// Router implements DEX by fanning out to every configured Factory.
type Router struct {
	cfg Config
}

var _ DEX = (*Router)(nil)

func NewRouter(cfg Config) *Router {
	return &Router{cfg: cfg}
}

// GetAllPoolsForPair queries every factory this DEX has configured and
// returns every live pool found. A factory that returns the zero address
// for a given fee tier simply contributes no pool — that is not an error,
// per spec.md §4's "zero pools across all DEXes" skip path. A factory or
// pool call that fails is returned as an error.
func (r *Router) GetAllPoolsForPair(ctx context.Context, a, b common.Address, client chain.Client) ([]*pool.Pool, error) {
	var pools []*pool.Pool
	for _, f := range r.cfg.Factories {
		switch f.Variant {
		case pool.VariantV2:
			p, err := r.queryV2(ctx, f, a, b, client)
			if err != nil {
				return nil, err
			}
			if p != nil {
				pools = append(pools, p)
			}
		case pool.VariantV3:
			found, err := r.queryV3(ctx, f, a, b, client)
			if err != nil {
				return nil, err
			}
			pools = append(pools, found...)
		default:
			return nil, coexerr.Provider(fmt.Sprintf("unknown dex variant %d for factory %s", f.Variant, f.Address), nil)
		}
	}
	return pools, nil
}

func (r *Router) queryV2(ctx context.Context, f Factory, a, b common.Address, client chain.Client) (*pool.Pool, error) {
	data, err := v2FactoryABI.Pack("getPair", a, b)
	if err != nil {
		return nil, coexerr.Provider("pack getPair", err)
	}
	out, err := client.CallContract(ctx, f.Address, data)
	if err != nil {
		return nil, err
	}
	var pairAddr common.Address
	if err := v2FactoryABI.UnpackIntoInterface(&pairAddr, "getPair", out); err != nil {
		return nil, coexerr.Decode("unpack getPair", err)
	}
	if pairAddr == (common.Address{}) {
		return nil, nil
	}

	reservesData, err := v2PairABI.Pack("getReserves")
	if err != nil {
		return nil, coexerr.Provider("pack getReserves", err)
	}
	reservesOut, err := client.CallContract(ctx, pairAddr, reservesData)
	if err != nil {
		return nil, err
	}
	var reserves struct {
		Reserve0           *big.Int
		Reserve1           *big.Int
		BlockTimestampLast uint32
	}
	if err := v2PairABI.UnpackIntoInterface(&reserves, "getReserves", reservesOut); err != nil {
		return nil, coexerr.Decode("unpack getReserves", err)
	}

	return pool.NewV2(pairAddr, a, b, reserves.Reserve0, reserves.Reserve1, f.FeeBps, r.cfg.Name), nil
}

// queryV3 probes every standard fee tier, since a V3 factory mints (or
// doesn't) an independent pool per tier.
func (r *Router) queryV3(ctx context.Context, f Factory, a, b common.Address, client chain.Client) ([]*pool.Pool, error) {
	var found []*pool.Pool
	for _, fee := range v3StandardFeeTiers {
		data, err := v3FactoryABI.Pack("getPool", a, b, big.NewInt(int64(fee)))
		if err != nil {
			return nil, coexerr.Provider("pack getPool", err)
		}
		out, err := client.CallContract(ctx, f.Address, data)
		if err != nil {
			return nil, err
		}
		var poolAddr common.Address
		if err := v3FactoryABI.UnpackIntoInterface(&poolAddr, "getPool", out); err != nil {
			return nil, coexerr.Decode("unpack getPool", err)
		}
		if poolAddr == (common.Address{}) {
			continue
		}

		p, err := r.readV3Pool(ctx, poolAddr, a, b, fee, client)
		if err != nil {
			return nil, err
		}
		found = append(found, p)
	}
	return found, nil
}

func (r *Router) readV3Pool(ctx context.Context, addr, a, b common.Address, fee uint32, client chain.Client) (*pool.Pool, error) {
	slot0Data, err := v3PoolABI.Pack("slot0")
	if err != nil {
		return nil, coexerr.Provider("pack slot0", err)
	}
	liquidityData, err := v3PoolABI.Pack("liquidity")
	if err != nil {
		return nil, coexerr.Provider("pack liquidity", err)
	}

	outs, err := client.BatchCall(ctx, batchCallMsgs(addr, slot0Data, liquidityData))
	if err != nil {
		return nil, err
	}

	var slot0 struct {
		SqrtPriceX96               *big.Int
		Tick                       *big.Int
		ObservationIndex           uint16
		ObservationCardinality     uint16
		ObservationCardinalityNext uint16
		FeeProtocol                uint8
		Unlocked                   bool
	}
	if err := v3PoolABI.UnpackIntoInterface(&slot0, "slot0", outs[0]); err != nil {
		return nil, coexerr.Decode("unpack slot0", err)
	}
	var liquidity *big.Int
	if err := v3PoolABI.UnpackIntoInterface(&liquidity, "liquidity", outs[1]); err != nil {
		return nil, coexerr.Decode("unpack liquidity", err)
	}

	sqrtPriceX96, overflow := uint256.FromBig(slot0.SqrtPriceX96)
	if overflow {
		return nil, coexerr.Decode(fmt.Sprintf("slot0.sqrtPriceX96 for pool %s overflows 256 bits", addr), nil)
	}

	return pool.NewV3(addr, a, b, sqrtPriceX96, liquidity, fee, int32(slot0.Tick.Int64()), r.cfg.Name), nil
}

// batchCallMsgs is a small local helper building the ethereum.CallMsg slice
// BatchCall expects, so readV3Pool's two calls to the same pool address
// collapse into one JSON-RPC round trip.
func batchCallMsgs(to common.Address, datas ...[]byte) []ethereum.CallMsg {
	msgs := make([]ethereum.CallMsg, len(datas))
	for i, d := range datas {
		msgs[i] = ethereum.CallMsg{To: &to, Data: d}
	}
	return msgs
}
