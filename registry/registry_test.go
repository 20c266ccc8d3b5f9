package registry

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonroute/tonroute-go/engine"
)

const (
	tonID  = 1
	usdtID = 2
	noteID = 3
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(engine.NetworkMainnet, 0)
	require.NoError(t, r.AddToken(Token{ID: tonID, Address: "tok:ton", Symbol: "TON", Decimals: 9}))
	require.NoError(t, r.AddToken(Token{ID: usdtID, Address: "tok:usdt", Symbol: "USDT", Decimals: 6}))
	require.NoError(t, r.AddToken(Token{ID: noteID, Address: "tok:note", Symbol: "NOTE", Decimals: 9}))
	return r
}

func pool(id uint64, address string, t0, t1 uint64, r0, r1 int64) Pool {
	return Pool{
		ID: id, Address: address, Token0: t0, Token1: t1,
		Reserve0: big.NewInt(r0), Reserve1: big.NewInt(r1),
		FeeBps: 30, Curve: engine.CurveVolatile,
	}
}

func TestAddTokenRejectsDuplicates(t *testing.T) {
	r := newTestRegistry(t)

	err := r.AddToken(Token{ID: tonID, Address: "tok:other", Symbol: "OTHER"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = r.AddToken(Token{ID: 99, Address: "tok:ton2", Symbol: "TON"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAddPool(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddPool(pool(10, "pool:a", tonID, usdtID, 100, 500)))

	assert.ErrorIs(t, r.AddPool(pool(10, "pool:b", tonID, usdtID, 1, 1)), ErrDuplicate)
	assert.ErrorIs(t, r.AddPool(pool(11, "pool:c", tonID, 42, 1, 1)), ErrUnknownToken)

	snap := r.Snapshot()
	p, ok := snap.PoolByID(10)
	require.True(t, ok)
	assert.Equal(t, "pool:a", p.Address)
	assert.Len(t, snap.PoolsBetween(tonID, usdtID), 1)
	assert.Len(t, snap.PoolsBetween(usdtID, tonID), 1)
	assert.Empty(t, snap.PoolsBetween(tonID, noteID))
}

func TestSetReserves(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddPool(pool(10, "pool:a", tonID, usdtID, 100, 500)))

	require.NoError(t, r.SetReserves(engine.PoolUpdate{
		PoolID: 10, Reserve0: big.NewInt(110), Reserve1: big.NewInt(460),
	}))
	p, _ := r.Snapshot().PoolByID(10)
	assert.Equal(t, big.NewInt(110), p.Reserve0)
	assert.Equal(t, big.NewInt(460), p.Reserve1)

	err := r.SetReserves(engine.PoolUpdate{PoolID: 99, Reserve0: big.NewInt(1), Reserve1: big.NewInt(1)})
	assert.ErrorIs(t, err, ErrUnknownPool)
}

func TestRemovePool(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddPool(pool(10, "pool:a", tonID, usdtID, 100, 500)))
	require.NoError(t, r.AddPool(pool(11, "pool:b", tonID, usdtID, 200, 900)))

	r.RemovePool(10)
	snap := r.Snapshot()
	_, ok := snap.PoolByID(10)
	assert.False(t, ok)
	assert.Len(t, snap.PoolsBetween(tonID, usdtID), 1)

	// Removing the last pool between two tokens severs the edge.
	r.RemovePool(11)
	snap = r.Snapshot()
	assert.Empty(t, snap.PoolsBetween(tonID, usdtID))

	// Unknown ids are a no-op.
	r.RemovePool(999)
}

func TestCompaction(t *testing.T) {
	r := New(engine.NetworkMainnet, 1)
	require.NoError(t, r.AddToken(Token{ID: tonID, Address: "tok:ton", Symbol: "TON"}))
	require.NoError(t, r.AddToken(Token{ID: usdtID, Address: "tok:usdt", Symbol: "USDT"}))
	require.NoError(t, r.AddToken(Token{ID: noteID, Address: "tok:note", Symbol: "NOTE"}))

	require.NoError(t, r.AddPool(pool(10, "pool:a", tonID, usdtID, 100, 500)))
	require.NoError(t, r.AddPool(pool(11, "pool:b", tonID, noteID, 100, 500)))
	require.NoError(t, r.AddPool(pool(12, "pool:c", usdtID, noteID, 100, 500)))

	// Each removal dangles two directed edges, pushing past the threshold
	// and forcing a rebuild; surviving routes must stay intact.
	r.RemovePool(10)
	r.RemovePool(11)

	snap := r.Snapshot()
	assert.Empty(t, snap.PoolsBetween(tonID, usdtID))
	assert.Empty(t, snap.PoolsBetween(tonID, noteID))
	assert.Len(t, snap.PoolsBetween(usdtID, noteID), 1)

	idx, ok := snap.TokenIndex(usdtID)
	require.True(t, ok)
	require.Len(t, snap.Edges(idx), 1)
	edge := snap.Edges(idx)[0]
	assert.Equal(t, "NOTE", snap.TokenAt(snap.EdgeTarget(edge)).Symbol)
}

func TestSnapshotIsolation(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddPool(pool(10, "pool:a", tonID, usdtID, 100, 500)))

	snap := r.Snapshot()

	// Later mutations must not leak into an already-taken snapshot.
	require.NoError(t, r.SetReserves(engine.PoolUpdate{
		PoolID: 10, Reserve0: big.NewInt(999), Reserve1: big.NewInt(999),
	}))
	r.RemovePool(10)

	p, ok := snap.PoolByID(10)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(100), p.Reserve0)
	assert.Equal(t, big.NewInt(500), p.Reserve1)
}

func TestSnapshotLookups(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddPool(pool(10, "pool:a", tonID, usdtID, 100, 500)))
	require.NoError(t, r.AddPool(pool(11, "pool:b", usdtID, noteID, 100, 500)))

	snap := r.Snapshot()
	assert.Equal(t, engine.NetworkMainnet, snap.Network())
	assert.Equal(t, 3, snap.NumTokens())

	tok, ok := snap.TokenBySymbol("USDT")
	require.True(t, ok)
	assert.Equal(t, uint64(usdtID), tok.ID)
	_, ok = snap.TokenBySymbol("NOPE")
	assert.False(t, ok)

	p, ok := snap.PoolByAddress("pool:b")
	require.True(t, ok)
	assert.Equal(t, uint64(11), p.ID)
	_, ok = snap.PoolByAddress("pool:z")
	assert.False(t, ok)

	containing := snap.PoolsContaining(usdtID)
	assert.Len(t, containing, 2)
	assert.Len(t, snap.PoolsContaining(tonID), 1)
	assert.Len(t, snap.Tokens(), 3)
}
