package router

import (
	"errors"
	"math/big"

	"github.com/tonroute/tonroute-go/engine"
)

// MaxHops bounds the length of any route.
const MaxHops = 3

// ErrNoRoute is returned when no pool path connects the requested tokens
// within MaxHops, or when every candidate path lacks the liquidity for the
// requested amount.
var ErrNoRoute = errors.New("no route found between tokens")

// Hop is one pool traversal within a route.
type Hop struct {
	PoolID         uint64           `json:"poolId"`
	PoolAddress    string           `json:"poolAddress"`
	Curve          engine.CurveType `json:"poolType"`
	TokenIn        uint64           `json:"-"`
	TokenOut       uint64           `json:"-"`
	TokenInSymbol  string           `json:"tokenIn"`
	TokenOutSymbol string           `json:"tokenOut"`
	AmountIn       *big.Int         `json:"amountIn"`
	AmountOut      *big.Int         `json:"amountOut"`
	PriceImpact    float64          `json:"priceImpact"`
}

// Route is an ordered chain of hops where every hop's output token is the
// next hop's input token.
type Route struct {
	Hops      []Hop       `json:"hops"`
	Side      engine.Side `json:"side"`
	AmountIn  *big.Int    `json:"amountIn"`
	AmountOut *big.Int    `json:"amountOut"`
	// PriceImpact is the compounded impact across all hops, in [0, 100].
	PriceImpact float64 `json:"priceImpact"`
}

// TokenIn returns the handle of the route's input token.
func (r *Route) TokenIn() uint64 {
	return r.Hops[0].TokenIn
}

// TokenOut returns the handle of the route's output token.
func (r *Route) TokenOut() uint64 {
	return r.Hops[len(r.Hops)-1].TokenOut
}

// PoolIDs returns the pool handle of every hop, in order.
func (r *Route) PoolIDs() []uint64 {
	ids := make([]uint64, len(r.Hops))
	for i, h := range r.Hops {
		ids[i] = h.PoolID
	}
	return ids
}

// Validate checks the route composition invariants.
func (r *Route) Validate() error {
	if len(r.Hops) == 0 || len(r.Hops) > MaxHops {
		return errors.New("route must have between 1 and 3 hops")
	}
	for i := 1; i < len(r.Hops); i++ {
		if r.Hops[i-1].TokenOut != r.Hops[i].TokenIn {
			return errors.New("route hops are not connected")
		}
	}
	return nil
}

// compoundImpact folds per-hop impacts into the route-level figure:
// 1 - prod(1 - impact_i/100), expressed as a percentage.
func compoundImpact(hops []Hop) float64 {
	remaining := 1.0
	for _, h := range hops {
		remaining *= 1 - h.PriceImpact/100
	}
	impact := (1 - remaining) * 100
	if impact < 0 {
		return 0
	}
	if impact > 100 {
		return 100
	}
	return impact
}
