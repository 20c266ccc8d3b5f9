package quote

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/router"
)

func sellRoute(amountIn, amountOut int64) *router.Route {
	return &router.Route{
		Hops: []Hop{{
			PoolID:         7,
			PoolAddress:    "pool:ton-usdt",
			Curve:          engine.CurveVolatile,
			TokenIn:        1,
			TokenOut:       2,
			TokenInSymbol:  "TON",
			TokenOutSymbol: "USDT",
			AmountIn:       big.NewInt(amountIn),
			AmountOut:      big.NewInt(amountOut),
			PriceImpact:    0.1,
		}},
		Side:        engine.SideSell,
		AmountIn:    big.NewInt(amountIn),
		AmountOut:   big.NewInt(amountOut),
		PriceImpact: 0.1,
	}
}

type Hop = router.Hop

func fixedClock(s *Store, at time.Time) *time.Time {
	now := at
	s.now = func() time.Time { return now }
	return &now
}

func TestStoreCreateDerivesSellBound(t *testing.T) {
	s := NewStore()
	q, err := s.Create(engine.NetworkMainnet, sellRoute(1000, 5000), 100, big.NewInt(30), time.Minute)
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, engine.SideSell, q.Side)
	// floor(5000 * 9900 / 10000)
	assert.Equal(t, big.NewInt(4950), q.AmountOutMin)
	assert.Nil(t, q.AmountInMax)
	assert.Equal(t, time.Minute, q.ExpiresAt.Sub(q.CreatedAt))
}

func TestStoreCreateDerivesBuyBound(t *testing.T) {
	r := sellRoute(1001, 5000)
	r.Side = engine.SideBuy

	s := NewStore()
	q, err := s.Create(engine.NetworkMainnet, r, 100, nil, time.Minute)
	require.NoError(t, err)

	// ceil(1001 * 10100 / 10000) = ceil(1011.01)
	assert.Equal(t, big.NewInt(1012), q.AmountInMax)
	assert.Nil(t, q.AmountOutMin)
}

func TestStoreCreateRejectsExcessSlippage(t *testing.T) {
	s := NewStore()
	_, err := s.Create(engine.NetworkMainnet, sellRoute(1000, 5000), 5100, nil, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidSlippage)
}

func TestStoreCreateRejectsNonPositiveTTL(t *testing.T) {
	s := NewStore()

	_, err := s.Create(engine.NetworkMainnet, sellRoute(1000, 5000), 0, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	_, err = s.Create(engine.NetworkMainnet, sellRoute(1000, 5000), 0, nil, -time.Minute)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestStoreGet(t *testing.T) {
	s := NewStore()
	q, err := s.Create(engine.NetworkMainnet, sellRoute(1000, 5000), 0, nil, time.Minute)
	require.NoError(t, err)

	got, err := s.Get(q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
	assert.Equal(t, big.NewInt(5000), got.AmountOutMin)

	_, err = s.Get("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore()
	now := fixedClock(s, time.Unix(1_700_000_000, 0))

	q, err := s.Create(engine.NetworkMainnet, sellRoute(1000, 5000), 0, nil, time.Minute)
	require.NoError(t, err)

	*now = now.Add(59 * time.Second)
	_, err = s.Get(q.ID)
	assert.NoError(t, err)

	*now = now.Add(2 * time.Second)
	_, err = s.Get(q.ID)
	assert.ErrorIs(t, err, ErrExpired)
	_, err = s.Consume(q.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestStoreConsumeExactlyOnce(t *testing.T) {
	s := NewStore()
	q, err := s.Create(engine.NetworkMainnet, sellRoute(1000, 5000), 0, nil, time.Minute)
	require.NoError(t, err)

	const callers = 32
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Consume(q.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyConsumed)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestStoreSweepKeepsRecentTombstones(t *testing.T) {
	s := NewStore()
	now := fixedClock(s, time.Unix(1_700_000_000, 0))

	q, err := s.Create(engine.NetworkMainnet, sellRoute(1000, 5000), 0, nil, time.Minute)
	require.NoError(t, err)

	// Expired but inside the retention window: record stays addressable.
	*now = now.Add(10 * time.Minute)
	assert.Equal(t, 0, s.Sweep())
	_, err = s.Get(q.ID)
	assert.ErrorIs(t, err, ErrExpired)

	// Past retention: the record is reclaimed and the id forgotten.
	*now = now.Add(s.retention)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
	_, err = s.Get(q.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
