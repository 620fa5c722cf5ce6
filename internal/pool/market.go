package pool

import "github.com/ethereum/go-ethereum/common"

// Market is the set of every known pool backing one unordered token pair,
// across all configured DEXes (spec.md §3: "Market"). A Market exists only
// once at least one pool backs it.
type Market struct {
	TokenA, TokenB common.Address
	Pools          map[common.Address]*Pool
}

// NewMarket creates an empty market for the given (ordered) token pair.
func NewMarket(tokenA, tokenB common.Address) *Market {
	lo, hi := tokenA, tokenB
	if !addressLess(lo, hi) {
		lo, hi = hi, lo
	}
	return &Market{TokenA: lo, TokenB: hi, Pools: make(map[common.Address]*Pool)}
}

// ID returns this market's MarketID.
func (m *Market) ID() common.Hash {
	return MarketID(m.TokenA, m.TokenB)
}

// AddPool inserts a pool into the market, keyed by its address.
func (m *Market) AddPool(p *Pool) {
	m.Pools[p.Addr] = p
}

// Clone deep-copies the market and every pool within it.
func (m *Market) Clone() *Market {
	cp := &Market{TokenA: m.TokenA, TokenB: m.TokenB, Pools: make(map[common.Address]*Pool, len(m.Pools))}
	for addr, p := range m.Pools {
		cp.Pools[addr] = p.Clone()
	}
	return cp
}

// MarketSet is the full collection of known markets, keyed by MarketID, and
// the reverse index from pool address to the market it belongs to. It is
// the pure-data type the state machine's `markets`/`pool_to_market` fields
// hold; concurrency control lives one layer up, in internal/state.
type MarketSet struct {
	Markets      map[common.Hash]*Market
	PoolToMarket map[common.Address]common.Hash
}

// NewMarketSet creates an empty market set.
func NewMarketSet() *MarketSet {
	return &MarketSet{
		Markets:      make(map[common.Hash]*Market),
		PoolToMarket: make(map[common.Address]common.Hash),
	}
}

// EnsureMarket returns the market for (tokenA, tokenB), creating an empty
// one if absent. The caller is responsible for only keeping it if at least
// one pool ends up backing it (spec.md §3 invariant: a market exists only
// if it has >=1 pool).
func (ms *MarketSet) EnsureMarket(tokenA, tokenB common.Address) *Market {
	id := MarketID(tokenA, tokenB)
	m, ok := ms.Markets[id]
	if !ok {
		m = NewMarket(tokenA, tokenB)
		ms.Markets[id] = m
	}
	return m
}

// Get returns the market for an id, if known.
func (ms *MarketSet) Get(id common.Hash) (*Market, bool) {
	m, ok := ms.Markets[id]
	return m, ok
}

// Has reports whether a market for (tokenA, tokenB) is already tracked.
func (ms *MarketSet) Has(tokenA, tokenB common.Address) bool {
	_, ok := ms.Markets[MarketID(tokenA, tokenB)]
	return ok
}

// AddPool registers a pool under the market for (tokenA, tokenB) and
// records the reverse pool->market mapping. Creates the market if needed.
func (ms *MarketSet) AddPool(tokenA, tokenB common.Address, p *Pool) {
	m := ms.EnsureMarket(tokenA, tokenB)
	m.AddPool(p)
	ms.PoolToMarket[p.Addr] = m.ID()
}

// MarketForPool resolves a pool address to its market, if tracked.
func (ms *MarketSet) MarketForPool(poolAddr common.Address) (*Market, bool) {
	id, ok := ms.PoolToMarket[poolAddr]
	if !ok {
		return nil, false
	}
	return ms.Get(id)
}

// Clone deep-copies every market and pool — the mechanism for transactional
// simulation described in spec.md §5/§9: the simulator mutates a clone and
// only the real ChainClient-observed events ever advance the original.
func (ms *MarketSet) Clone() *MarketSet {
	cp := NewMarketSet()
	for id, m := range ms.Markets {
		cp.Markets[id] = m.Clone()
	}
	for addr, id := range ms.PoolToMarket {
		cp.PoolToMarket[addr] = id
	}
	return cp
}
