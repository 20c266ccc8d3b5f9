package amm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/registry"
)

func testPool() registry.Pool {
	return registry.Pool{
		ID: 10, Address: "pool:ton-usdt",
		Token0: 1, Token1: 2,
		Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(5_000_000),
		FeeBps: 30, Curve: engine.CurveVolatile,
		LPSupply: big.NewInt(2_000_000),
	}
}

func TestQuoteAdd(t *testing.T) {
	q, err := QuoteAdd(testPool(), big.NewInt(10_000))
	require.NoError(t, err)

	assert.Equal(t, OpAdd, q.Operation)
	assert.Equal(t, big.NewInt(10_000), q.Amount0)
	// 10000 * 5000000 / 1000000, exact
	assert.Equal(t, big.NewInt(50_000), q.Amount1)
	// 10000 * 2000000 / 1000000
	assert.Equal(t, big.NewInt(20_000), q.LPAmount)
	// 20000 / 2020000 in bps
	assert.Equal(t, uint32(99), q.ShareBps)
}

func TestQuoteAddRoundsMatchingLegUp(t *testing.T) {
	pool := testPool()
	pool.Reserve1 = big.NewInt(5_000_001)

	q, err := QuoteAdd(pool, big.NewInt(3))
	require.NoError(t, err)
	// 3 * 5000001 / 1000000 = 15.000003, deposit leg rounds up
	assert.Equal(t, big.NewInt(16), q.Amount1)
}

func TestQuoteRemove(t *testing.T) {
	q, err := QuoteRemove(testPool(), big.NewInt(200_000))
	require.NoError(t, err)

	assert.Equal(t, OpRemove, q.Operation)
	assert.Equal(t, big.NewInt(100_000), q.Amount0)
	assert.Equal(t, big.NewInt(500_000), q.Amount1)
	assert.Equal(t, uint32(1000), q.ShareBps)
}

func TestQuoteRemoveOverSupply(t *testing.T) {
	_, err := QuoteRemove(testPool(), big.NewInt(2_000_001))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestQuoteRejectsBadAmounts(t *testing.T) {
	_, err := QuoteAdd(testPool(), nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = QuoteAdd(testPool(), big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = QuoteRemove(testPool(), big.NewInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestQuoteEmptyPool(t *testing.T) {
	pool := testPool()
	pool.LPSupply = big.NewInt(0)
	_, err := QuoteAdd(pool, big.NewInt(100))
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestPosition(t *testing.T) {
	reg := registry.New(engine.NetworkMainnet, 0)
	require.NoError(t, reg.AddToken(registry.Token{ID: 1, Address: "tok:ton", Symbol: "TON", Decimals: 9}))
	require.NoError(t, reg.AddToken(registry.Token{ID: 2, Address: "tok:usdt", Symbol: "USDT", Decimals: 6}))
	require.NoError(t, reg.AddPool(testPool()))

	info, err := Position(reg.Snapshot(), "pool:ton-usdt")
	require.NoError(t, err)
	assert.Equal(t, "TON", info.Token0Symbol)
	assert.Equal(t, "USDT", info.Token1Symbol)
	assert.Equal(t, big.NewInt(1_000_000), info.Reserve0)
	assert.Equal(t, big.NewInt(2_000_000), info.LPSupply)
	assert.Equal(t, "volatile", info.Curve)

	_, err = Position(reg.Snapshot(), "pool:missing")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}
