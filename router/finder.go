// Package router finds the best chain of liquidity pools between two tokens
// on a registry snapshot. The search and pricing are pure computations over
// immutable data and are safe to run concurrently without locking.
package router

import (
	"fmt"
	"math/big"

	"github.com/tonroute/tonroute-go/bitset"
	"github.com/tonroute/tonroute-go/curve"
	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/registry"
)

// Find searches for the best route from tokenIn to tokenOut on the snapshot.
//
// For SELL, amount is the exact input and the best route maximizes the final
// output. For BUY, amount is the exact output and the best route minimizes
// the required input. Ties are broken by fewest hops, then by the
// lexicographically smallest pool address sequence, so selection is
// deterministic for identical pool state.
func Find(snap *registry.Snapshot, tokenIn, tokenOut uint64, amount *big.Int, side engine.Side) (*Route, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", ErrNoRoute)
	}
	if tokenIn == tokenOut {
		return nil, fmt.Errorf("%w: identical tokens", ErrNoRoute)
	}

	startIndex, ok := snap.TokenIndex(tokenIn)
	if !ok {
		return nil, fmt.Errorf("%w: token %d not in graph", ErrNoRoute, tokenIn)
	}
	endIndex, ok := snap.TokenIndex(tokenOut)
	if !ok {
		return nil, fmt.Errorf("%w: token %d not in graph", ErrNoRoute, tokenOut)
	}

	search := &pathSearch{
		snap:     snap,
		end:      endIndex,
		amount:   amount,
		side:     side,
		visited:  bitset.New(snap.NumTokens()),
		tokenSeq: make([]int, 1, MaxHops+1),
		poolSeq:  make([]int, 0, MaxHops),
	}
	search.tokenSeq[0] = startIndex
	search.visited.Add(startIndex)

	search.walk(startIndex)

	if search.best == nil {
		return nil, fmt.Errorf("%w: %d -> %d within %d hops", ErrNoRoute, tokenIn, tokenOut, MaxHops)
	}
	return search.best, nil
}

// pathSearch carries the state of one bounded depth-first enumeration of
// simple paths. Candidate paths are priced as they complete; only the best
// route is retained.
type pathSearch struct {
	snap   *registry.Snapshot
	end    int
	amount *big.Int
	side   engine.Side

	visited  bitset.Set
	tokenSeq []int // vertex indices of the current path
	poolSeq  []int // pool indices chosen per edge

	best *Route
}

func (s *pathSearch) walk(current int) {
	if len(s.poolSeq) >= MaxHops {
		return
	}

	for _, edgeIndex := range s.snap.Edges(current) {
		target := s.snap.EdgeTarget(edgeIndex)
		if s.visited.Has(target) {
			continue
		}

		for _, poolIndex := range s.snap.EdgePools(edgeIndex) {
			if !s.snap.PoolAt(poolIndex).Tradable() {
				continue
			}

			s.tokenSeq = append(s.tokenSeq, target)
			s.poolSeq = append(s.poolSeq, poolIndex)

			if target == s.end {
				s.evaluate()
			} else {
				s.visited.Add(target)
				s.walk(target)
				s.visited.Remove(target)
			}

			s.tokenSeq = s.tokenSeq[:len(s.tokenSeq)-1]
			s.poolSeq = s.poolSeq[:len(s.poolSeq)-1]
		}
	}
}

// evaluate prices the current complete path and keeps it if it beats the
// best route so far. Paths that fail pricing (illiquid pool, non-converging
// curve) are silently discarded.
func (s *pathSearch) evaluate() {
	var (
		route *Route
		err   error
	)
	switch s.side {
	case engine.SideBuy:
		route, err = s.priceBackward()
	default:
		route, err = s.priceForward()
	}
	if err != nil {
		return
	}

	if s.betterThanBest(route) {
		s.best = route
	}
}

// priceForward simulates the path hop by hop with an exact input, each hop's
// output becoming the next hop's input.
func (s *pathSearch) priceForward() (*Route, error) {
	hops := make([]Hop, len(s.poolSeq))
	amt := s.amount

	for i, poolIndex := range s.poolSeq {
		pool := s.snap.PoolAt(poolIndex)
		tIn := s.snap.TokenAt(s.tokenSeq[i])
		tOut := s.snap.TokenAt(s.tokenSeq[i+1])

		out, err := curve.AmountOut(pool, tIn.ID, tOut.ID, amt)
		if err != nil {
			return nil, err
		}
		impact, err := curve.PriceImpact(pool, tIn.ID, tOut.ID, amt, out)
		if err != nil {
			return nil, err
		}

		hops[i] = Hop{
			PoolID:         pool.ID,
			PoolAddress:    pool.Address,
			Curve:          pool.Curve,
			TokenIn:        tIn.ID,
			TokenOut:       tOut.ID,
			TokenInSymbol:  tIn.Symbol,
			TokenOutSymbol: tOut.Symbol,
			AmountIn:       amt,
			AmountOut:      out,
			PriceImpact:    impact,
		}
		amt = out
	}

	return &Route{
		Hops:        hops,
		Side:        engine.SideSell,
		AmountIn:    s.amount,
		AmountOut:   amt,
		PriceImpact: compoundImpact(hops),
	}, nil
}

// priceBackward simulates the path from the target output backwards,
// computing the required input of each preceding hop.
func (s *pathSearch) priceBackward() (*Route, error) {
	hops := make([]Hop, len(s.poolSeq))
	amt := s.amount

	for i := len(s.poolSeq) - 1; i >= 0; i-- {
		pool := s.snap.PoolAt(s.poolSeq[i])
		tIn := s.snap.TokenAt(s.tokenSeq[i])
		tOut := s.snap.TokenAt(s.tokenSeq[i+1])

		in, err := curve.AmountIn(pool, tIn.ID, tOut.ID, amt)
		if err != nil {
			return nil, err
		}
		impact, err := curve.PriceImpact(pool, tIn.ID, tOut.ID, in, amt)
		if err != nil {
			return nil, err
		}

		hops[i] = Hop{
			PoolID:         pool.ID,
			PoolAddress:    pool.Address,
			Curve:          pool.Curve,
			TokenIn:        tIn.ID,
			TokenOut:       tOut.ID,
			TokenInSymbol:  tIn.Symbol,
			TokenOutSymbol: tOut.Symbol,
			AmountIn:       in,
			AmountOut:      amt,
			PriceImpact:    impact,
		}
		amt = in
	}

	return &Route{
		Hops:        hops,
		Side:        engine.SideBuy,
		AmountIn:    amt,
		AmountOut:   s.amount,
		PriceImpact: compoundImpact(hops),
	}, nil
}

// betterThanBest ranks a candidate against the current best: larger output
// (SELL) / smaller input (BUY) wins; on equal amounts fewer hops win; on
// equal hop count the lexicographically smaller pool address sequence wins.
func (s *pathSearch) betterThanBest(candidate *Route) bool {
	best := s.best
	if best == nil {
		return true
	}

	var cmp int
	if s.side == engine.SideBuy {
		cmp = best.AmountIn.Cmp(candidate.AmountIn) // smaller input is better
	} else {
		cmp = candidate.AmountOut.Cmp(best.AmountOut) // larger output is better
	}
	if cmp != 0 {
		return cmp > 0
	}

	if len(candidate.Hops) != len(best.Hops) {
		return len(candidate.Hops) < len(best.Hops)
	}

	for i := range candidate.Hops {
		if candidate.Hops[i].PoolAddress != best.Hops[i].PoolAddress {
			return candidate.Hops[i].PoolAddress < best.Hops[i].PoolAddress
		}
	}
	return false
}
