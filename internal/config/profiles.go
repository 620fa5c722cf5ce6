package config

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/conveyorlabs/coex/internal/dex"
	"github.com/conveyorlabs/coex/internal/pool"
)

// Profile is the compiled-in, non-user-configurable chain data SPEC_FULL.md
// §2 describes: every address and block number the executor needs beyond
// what's in the TOML file. Shaped the way the teacher compiles its tick-size
// table into pkg/types rather than accepting it from config.
type Profile struct {
	NativeSymbol      string
	WETH              common.Address
	WETHDecimals      uint8
	LimitOrderBook    common.Address
	SandboxOrderBook  common.Address
	Router            common.Address
	Executor          common.Address
	CreationBlock     uint64
	DEXes             []dex.Config
}

// Profiles is keyed by chain_name, exactly the enum spec.md §6 lists:
// ethereum, polygon, optimism, arbitrum, bsc, cronos.
var Profiles = map[string]Profile{
	"ethereum": {
		NativeSymbol:     "ETH",
		WETH:             common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		WETHDecimals:     18,
		LimitOrderBook:   common.HexToAddress("0x1000000000000000000000000000000000000a"),
		SandboxOrderBook: common.HexToAddress("0x1000000000000000000000000000000000000b"),
		Router:           common.HexToAddress("0x1000000000000000000000000000000000000c"),
		Executor:         common.HexToAddress("0x1000000000000000000000000000000000000d"),
		CreationBlock:    17_000_000,
		DEXes: []dex.Config{
			{
				Name: "uniswap",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"), Variant: pool.VariantV2, CreationBlock: 10_000_835, FeeBps: 30},
					{Address: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"), Variant: pool.VariantV3, CreationBlock: 12_369_621},
				},
			},
			{
				Name: "sushiswap",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"), Variant: pool.VariantV2, CreationBlock: 10_794_229, FeeBps: 30},
				},
			},
		},
	},
	"polygon": {
		NativeSymbol:     "MATIC",
		WETH:             common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
		WETHDecimals:     18,
		LimitOrderBook:   common.HexToAddress("0x2000000000000000000000000000000000000a"),
		SandboxOrderBook: common.HexToAddress("0x2000000000000000000000000000000000000b"),
		Router:           common.HexToAddress("0x2000000000000000000000000000000000000c"),
		Executor:         common.HexToAddress("0x2000000000000000000000000000000000000d"),
		CreationBlock:    40_000_000,
		DEXes: []dex.Config{
			{
				Name: "quickswap",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32"), Variant: pool.VariantV2, CreationBlock: 4_931_751, FeeBps: 30},
				},
			},
			{
				Name: "uniswap",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"), Variant: pool.VariantV3, CreationBlock: 22_757_547},
				},
			},
		},
	},
	"arbitrum": {
		NativeSymbol:     "ETH",
		WETH:             common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		WETHDecimals:     18,
		LimitOrderBook:   common.HexToAddress("0x3000000000000000000000000000000000000a"),
		SandboxOrderBook: common.HexToAddress("0x3000000000000000000000000000000000000b"),
		Router:           common.HexToAddress("0x3000000000000000000000000000000000000c"),
		Executor:         common.HexToAddress("0x3000000000000000000000000000000000000d"),
		CreationBlock:    70_000_000,
		DEXes: []dex.Config{
			{
				Name: "uniswap",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"), Variant: pool.VariantV3, CreationBlock: 165},
				},
			},
			{
				Name: "camelot",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0x6EcCab422D763aC031210895C81787E87B43A652"), Variant: pool.VariantV2, CreationBlock: 108},
				},
			},
		},
	},
	"optimism": {
		NativeSymbol:     "ETH",
		WETH:             common.HexToAddress("0x4200000000000000000000000000000000000006"),
		WETHDecimals:     18,
		LimitOrderBook:   common.HexToAddress("0x4000000000000000000000000000000000000a"),
		SandboxOrderBook: common.HexToAddress("0x4000000000000000000000000000000000000b"),
		Router:           common.HexToAddress("0x4000000000000000000000000000000000000c"),
		Executor:         common.HexToAddress("0x4000000000000000000000000000000000000d"),
		CreationBlock:    4_286_263,
		DEXes: []dex.Config{
			{
				Name: "uniswap",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"), Variant: pool.VariantV3, CreationBlock: 4},
				},
			},
		},
	},
	"bsc": {
		NativeSymbol:     "BNB",
		WETH:             common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"),
		WETHDecimals:     18,
		LimitOrderBook:   common.HexToAddress("0x5000000000000000000000000000000000000a"),
		SandboxOrderBook: common.HexToAddress("0x5000000000000000000000000000000000000b"),
		Router:           common.HexToAddress("0x5000000000000000000000000000000000000c"),
		Executor:         common.HexToAddress("0x5000000000000000000000000000000000000d"),
		CreationBlock:    6_809_737,
		DEXes: []dex.Config{
			{
				Name: "pancakeswap",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73"), Variant: pool.VariantV2, CreationBlock: 6_809_737, FeeBps: 25},
					{Address: common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"), Variant: pool.VariantV3, CreationBlock: 26_956_207},
				},
			},
		},
	},
	"cronos": {
		NativeSymbol:     "CRO",
		WETH:             common.HexToAddress("0xe44Fd7fCb2b1581822D0c862B68222998a0c299a"),
		WETHDecimals:     18,
		LimitOrderBook:   common.HexToAddress("0x6000000000000000000000000000000000000a"),
		SandboxOrderBook: common.HexToAddress("0x6000000000000000000000000000000000000b"),
		Router:           common.HexToAddress("0x6000000000000000000000000000000000000c"),
		Executor:         common.HexToAddress("0x6000000000000000000000000000000000000d"),
		CreationBlock:    1_963_000,
		DEXes: []dex.Config{
			{
				Name: "vvs",
				Factories: []dex.Factory{
					{Address: common.HexToAddress("0x3B44B2a187a7b3824131F8db5a74194D0a42Fc15"), Variant: pool.VariantV2, CreationBlock: 1_963_000, FeeBps: 30},
				},
			},
		},
	},
}
