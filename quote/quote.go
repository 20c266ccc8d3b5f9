// Package quote owns the lifecycle of priced swap quotes: creation with
// slippage-derived bounds, TTL-bounded retrieval, and exactly-once
// consumption. The Store is the only shared mutable resource of the engine.
package quote

import (
	"errors"
	"math/big"
	"time"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/router"
)

var (
	// ErrNotFound is returned for a quote id that was never issued, or whose
	// record has already been reclaimed.
	ErrNotFound = errors.New("quote not found")
	// ErrExpired is returned for a quote past its ttl.
	ErrExpired = errors.New("quote expired")
	// ErrAlreadyConsumed is returned when a second caller tries to consume a
	// quote; exactly one execution attempt per quote id ever proceeds.
	ErrAlreadyConsumed = errors.New("quote already consumed")
	// ErrInvalidSlippage is returned for a slippage outside [0, 50] percent.
	ErrInvalidSlippage = errors.New("slippage must be between 0 and 50 percent")
	// ErrInvalidTTL is returned when a quote is created with a non-positive ttl.
	ErrInvalidTTL = errors.New("quote ttl must be positive")
)

var basisPointDivisor = big.NewInt(10000)

// Quote is a priced route bound to a deadline. It is read-only after
// creation; only the store-held consumption flag ever changes.
type Quote struct {
	ID      string         `json:"quoteId"`
	Network engine.Network `json:"network"`
	Route   *router.Route  `json:"route"`
	Side    engine.Side    `json:"side"`

	AmountIn  *big.Int `json:"amountIn"`
	AmountOut *big.Int `json:"amountOut"`
	// AmountOutMin is set for SELL quotes: the slippage-adjusted floor.
	AmountOutMin *big.Int `json:"amountOutMin,omitempty"`
	// AmountInMax is set for BUY quotes: the slippage-adjusted ceiling.
	AmountInMax *big.Int `json:"amountInMax,omitempty"`

	SlippageBps uint32   `json:"slippageBps"`
	PriceImpact float64  `json:"priceImpact"`
	GasEstimate *big.Int `json:"gasEstimate"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the quote is past its ttl at the given instant.
func (q *Quote) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// slippageBounds derives the guaranteed bound from the quoted amounts.
// SELL: amountOutMin = floor(amountOut * (10000 - bps) / 10000).
// BUY:  amountInMax  = ceil(amountIn * (10000 + bps) / 10000).
// Both roundings tighten the bound against the trader.
func slippageBounds(route *router.Route, side engine.Side, slippageBps uint32) (outMin, inMax *big.Int) {
	bps := new(big.Int).SetUint64(uint64(slippageBps))

	if side == engine.SideBuy {
		num := new(big.Int).Add(basisPointDivisor, bps)
		num.Mul(num, route.AmountIn)
		inMax, rem := new(big.Int).QuoRem(num, basisPointDivisor, new(big.Int))
		if rem.Sign() != 0 {
			inMax.Add(inMax, big.NewInt(1))
		}
		return nil, inMax
	}

	num := new(big.Int).Sub(basisPointDivisor, bps)
	num.Mul(num, route.AmountOut)
	outMin = num.Div(num, basisPointDivisor)
	return outMin, nil
}
