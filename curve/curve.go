// Package curve prices trades against a single pool. All calculations work
// on fixed-point integer amounts in the smallest token denomination; rounding
// always favors the pool over the trader (floor outputs, ceil required
// inputs) so no value leaks through chained rounding across hops.
package curve

import (
	"fmt"
	"math/big"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/registry"
)

// AmountOut prices an exact-input trade through the pool's curve.
func AmountOut(pool registry.Pool, tokenIn, tokenOut uint64, amountIn *big.Int) (*big.Int, error) {
	switch pool.Curve {
	case engine.CurveVolatile:
		return constantProductOut(amountIn, tokenIn, tokenOut, pool)
	case engine.CurveStable:
		return stableSwapOut(amountIn, tokenIn, tokenOut, pool)
	}
	return nil, fmt.Errorf("%w: %q on pool %d", ErrUnknownCurve, pool.Curve, pool.ID)
}

// AmountIn prices an exact-output trade through the pool's curve.
func AmountIn(pool registry.Pool, tokenIn, tokenOut uint64, amountOut *big.Int) (*big.Int, error) {
	switch pool.Curve {
	case engine.CurveVolatile:
		return constantProductIn(amountOut, tokenIn, tokenOut, pool)
	case engine.CurveStable:
		return stableSwapIn(amountOut, tokenIn, tokenOut, pool)
	}
	return nil, fmt.Errorf("%w: %q on pool %d", ErrUnknownCurve, pool.Curve, pool.ID)
}

// SpotPrice returns the marginal, fee-free price of tokenOut per tokenIn in
// raw units. For the constant-product curve this is reserveOut/reserveIn; for
// the stable curve it is measured with a small fee-free probe trade since the
// reserve ratio is not the marginal price under amplification.
func SpotPrice(pool registry.Pool, tokenIn, tokenOut uint64) (*big.Rat, error) {
	reserveIn, reserveOut, err := orientedReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if err := checkLiquidityFloor(reserveIn, reserveOut, pool.ID); err != nil {
		return nil, err
	}

	switch pool.Curve {
	case engine.CurveVolatile:
		return new(big.Rat).SetFrac(reserveOut, reserveIn), nil
	case engine.CurveStable:
		// probe with 1/10000 of the input reserve, fee-free
		probe := new(big.Int).Div(reserveIn, basisPointDivisor)
		if probe.Sign() == 0 {
			probe.SetInt64(1)
		}
		feeless := pool
		feeless.FeeBps = 0
		out, err := stableSwapOut(probe, tokenIn, tokenOut, feeless)
		if err != nil {
			return nil, err
		}
		return new(big.Rat).SetFrac(out, probe), nil
	}
	return nil, fmt.Errorf("%w: %q on pool %d", ErrUnknownCurve, pool.Curve, pool.ID)
}

// PriceImpact reports the relative deviation of a trade's execution price
// from the pool's spot price, as a percentage in [0, 100]. The result is a
// report-only figure; amounts never pass through floating point.
func PriceImpact(pool registry.Pool, tokenIn, tokenOut uint64, amountIn, amountOut *big.Int) (float64, error) {
	if amountIn == nil || amountOut == nil {
		return 0, ErrNilAmount
	}
	if amountIn.Sign() <= 0 || amountOut.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}

	spot, err := SpotPrice(pool, tokenIn, tokenOut)
	if err != nil {
		return 0, err
	}
	if spot.Sign() <= 0 {
		return 0, fmt.Errorf("%w: non-positive spot price on pool %d", ErrInvalidState, pool.ID)
	}

	exec := new(big.Rat).SetFrac(amountOut, amountIn)
	deviation := new(big.Rat).Sub(exec, spot)
	deviation.Abs(deviation)
	deviation.Quo(deviation, spot)

	impact, _ := new(big.Rat).Mul(deviation, big.NewRat(100, 1)).Float64()
	if impact < 0 {
		impact = 0
	}
	if impact > 100 {
		impact = 100
	}
	return impact, nil
}
