package router

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/registry"
)

const (
	tonID  = 1
	usdtID = 2
	noteID = 3
	farID  = 4
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(engine.NetworkMainnet, 0)

	tokens := []registry.Token{
		{ID: tonID, Address: "EQton", Symbol: "TON", Name: "Toncoin", Decimals: 9},
		{ID: usdtID, Address: "EQusdt", Symbol: "USDT", Name: "Tether USD", Decimals: 6},
		{ID: noteID, Address: "EQnote", Symbol: "NOTE", Name: "Notcoin", Decimals: 9},
		{ID: farID, Address: "EQfar", Symbol: "FAR", Name: "Far Away", Decimals: 9},
	}
	for _, tok := range tokens {
		require.NoError(t, r.AddToken(tok))
	}
	return r
}

func addPool(t *testing.T, r *registry.Registry, id uint64, addr string, t0, t1 uint64, r0, r1 int64, feeBps uint16, curveType engine.CurveType) {
	t.Helper()
	require.NoError(t, r.AddPool(registry.Pool{
		ID:       id,
		Address:  addr,
		Token0:   t0,
		Token1:   t1,
		Reserve0: big.NewInt(r0),
		Reserve1: big.NewInt(r1),
		FeeBps:   feeBps,
		Curve:    curveType,
		Amp:      100,
	}))
}

func TestFindDirectRoute(t *testing.T) {
	r := testRegistry(t)
	addPool(t, r, 10, "pool:ton-usdt", tonID, usdtID, 1_000_000_000_000, 5_000_000_000_000, 30, engine.CurveVolatile)

	route, err := Find(r.Snapshot(), tonID, usdtID, big.NewInt(1_000_000_000), engine.SideSell)
	require.NoError(t, err)
	require.Len(t, route.Hops, 1)
	assert.Equal(t, uint64(10), route.Hops[0].PoolID)
	assert.Equal(t, "TON", route.Hops[0].TokenInSymbol)
	assert.Equal(t, "USDT", route.Hops[0].TokenOutSymbol)
	assert.Equal(t, 0, route.AmountIn.Cmp(big.NewInt(1_000_000_000)))
	assert.True(t, route.AmountOut.Sign() > 0)
	assert.NoError(t, route.Validate())
}

func TestFindPicksBestOfParallelPools(t *testing.T) {
	r := testRegistry(t)
	// Same reserves, different fees: the cheaper pool must win.
	addPool(t, r, 10, "pool:expensive", tonID, usdtID, 1_000_000_000_000, 5_000_000_000_000, 100, engine.CurveVolatile)
	addPool(t, r, 11, "pool:cheap", tonID, usdtID, 1_000_000_000_000, 5_000_000_000_000, 10, engine.CurveVolatile)

	route, err := Find(r.Snapshot(), tonID, usdtID, big.NewInt(1_000_000_000), engine.SideSell)
	require.NoError(t, err)
	require.Len(t, route.Hops, 1)
	assert.Equal(t, uint64(11), route.Hops[0].PoolID)
}

func TestFindPrefersMultiHopWhenDirectIsShallow(t *testing.T) {
	r := testRegistry(t)
	// Direct pool barely above the liquidity floor: brutal slippage.
	addPool(t, r, 10, "pool:shallow", tonID, usdtID, 10_000, 10_000, 30, engine.CurveVolatile)
	// Deep two-hop path via NOTE.
	addPool(t, r, 11, "pool:ton-note", tonID, noteID, 1_000_000_000_000, 1_000_000_000_000, 30, engine.CurveVolatile)
	addPool(t, r, 12, "pool:note-usdt", noteID, usdtID, 1_000_000_000_000, 1_000_000_000_000, 30, engine.CurveVolatile)

	route, err := Find(r.Snapshot(), tonID, usdtID, big.NewInt(5_000), engine.SideSell)
	require.NoError(t, err)
	require.Len(t, route.Hops, 2)
	assert.Equal(t, []uint64{11, 12}, route.PoolIDs())
	assert.Equal(t, route.Hops[0].TokenOut, route.Hops[1].TokenIn)
}

func TestFindBuySide(t *testing.T) {
	r := testRegistry(t)
	addPool(t, r, 10, "pool:ton-usdt", tonID, usdtID, 1_000_000_000_000, 5_000_000_000_000, 30, engine.CurveVolatile)

	want := big.NewInt(50_000_000)
	route, err := Find(r.Snapshot(), tonID, usdtID, want, engine.SideBuy)
	require.NoError(t, err)
	assert.Equal(t, 0, route.AmountOut.Cmp(want), "BUY must return the exact requested output")
	assert.True(t, route.AmountIn.Sign() > 0)

	// The quoted input must actually produce at least the requested output.
	forward, err := Find(r.Snapshot(), tonID, usdtID, route.AmountIn, engine.SideSell)
	require.NoError(t, err)
	assert.True(t, forward.AmountOut.Cmp(want) >= 0,
		"input %s yields only %s, requested %s", route.AmountIn, forward.AmountOut, want)
}

func TestFindNoRoute(t *testing.T) {
	r := testRegistry(t)
	addPool(t, r, 10, "pool:ton-usdt", tonID, usdtID, 1_000_000_000_000, 5_000_000_000_000, 30, engine.CurveVolatile)
	// FAR has no pools at all.

	_, err := Find(r.Snapshot(), tonID, farID, big.NewInt(1_000_000), engine.SideSell)
	assert.ErrorIs(t, err, ErrNoRoute)

	// Unknown token handles are a routing failure, not a crash.
	_, err = Find(r.Snapshot(), 999, usdtID, big.NewInt(1_000_000), engine.SideSell)
	assert.ErrorIs(t, err, ErrNoRoute)

	_, err = Find(r.Snapshot(), tonID, tonID, big.NewInt(1_000_000), engine.SideSell)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestFindRespectsMaxHops(t *testing.T) {
	r := testRegistry(t)
	require.NoError(t, r.AddToken(registry.Token{ID: 5, Address: "EQmid1", Symbol: "MID1", Decimals: 9}))
	require.NoError(t, r.AddToken(registry.Token{ID: 6, Address: "EQmid2", Symbol: "MID2", Decimals: 9}))

	// TON -> MID1 -> MID2 -> NOTE -> USDT requires four hops.
	addPool(t, r, 20, "pool:a", tonID, 5, 1_000_000_000, 1_000_000_000, 30, engine.CurveVolatile)
	addPool(t, r, 21, "pool:b", 5, 6, 1_000_000_000, 1_000_000_000, 30, engine.CurveVolatile)
	addPool(t, r, 22, "pool:c", 6, noteID, 1_000_000_000, 1_000_000_000, 30, engine.CurveVolatile)
	addPool(t, r, 23, "pool:d", noteID, usdtID, 1_000_000_000, 1_000_000_000, 30, engine.CurveVolatile)

	_, err := Find(r.Snapshot(), tonID, usdtID, big.NewInt(1_000_000), engine.SideSell)
	assert.ErrorIs(t, err, ErrNoRoute)

	// Three hops is still in range.
	route, err := Find(r.Snapshot(), tonID, noteID, big.NewInt(1_000_000), engine.SideSell)
	require.NoError(t, err)
	assert.Len(t, route.Hops, 3)
}

func TestFindDeterministicTieBreak(t *testing.T) {
	r := testRegistry(t)
	// Identical pools, registration order reversed relative to address order.
	addPool(t, r, 10, "pool:bbb", tonID, usdtID, 1_000_000_000_000, 5_000_000_000_000, 30, engine.CurveVolatile)
	addPool(t, r, 11, "pool:aaa", tonID, usdtID, 1_000_000_000_000, 5_000_000_000_000, 30, engine.CurveVolatile)

	first, err := Find(r.Snapshot(), tonID, usdtID, big.NewInt(1_000_000_000), engine.SideSell)
	require.NoError(t, err)
	assert.Equal(t, "pool:aaa", first.Hops[0].PoolAddress)

	// Identical inputs against unchanged state price identically.
	second, err := Find(r.Snapshot(), tonID, usdtID, big.NewInt(1_000_000_000), engine.SideSell)
	require.NoError(t, err)
	assert.Equal(t, 0, first.AmountOut.Cmp(second.AmountOut))
	assert.Equal(t, first.PriceImpact, second.PriceImpact)
	assert.Equal(t, first.PoolIDs(), second.PoolIDs())
}

func TestFindStablePoolOnRoute(t *testing.T) {
	r := testRegistry(t)
	require.NoError(t, r.AddToken(registry.Token{ID: 7, Address: "EQusde", Symbol: "USDE", Decimals: 6}))

	addPool(t, r, 10, "pool:ton-usdt", tonID, usdtID, 1_000_000_000_000, 5_000_000_000_000, 30, engine.CurveVolatile)
	addPool(t, r, 11, "pool:usdt-usde", usdtID, 7, 5_000_000_000_000, 5_000_000_000_000, 5, engine.CurveStable)

	route, err := Find(r.Snapshot(), tonID, 7, big.NewInt(1_000_000_000), engine.SideSell)
	require.NoError(t, err)
	require.Len(t, route.Hops, 2)
	assert.Equal(t, engine.CurveVolatile, route.Hops[0].Curve)
	assert.Equal(t, engine.CurveStable, route.Hops[1].Curve)
	assert.GreaterOrEqual(t, route.PriceImpact, 0.0)
	assert.LessOrEqual(t, route.PriceImpact, 100.0)
}

func TestRouteValidate(t *testing.T) {
	disconnected := &Route{
		Hops: []Hop{
			{TokenIn: tonID, TokenOut: usdtID},
			{TokenIn: noteID, TokenOut: farID},
		},
	}
	assert.Error(t, disconnected.Validate())

	empty := &Route{}
	assert.Error(t, empty.Validate())
}
