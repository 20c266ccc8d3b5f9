package curve

import (
	"fmt"
	"math/big"

	"github.com/tonroute/tonroute-go/registry"
)

// Stable-swap pricing. The pool invariant D is maintained by the
// amplification coefficient A over a correlated pair; amounts are obtained by
// solving the invariant for the unknown reserve with a bounded Newton
// iteration. Non-convergence is a liquidity failure, never a crash.

const (
	// maxIterations bounds every Newton solve.
	maxIterations = 255
	// nCoins is fixed: pools are two-sided.
	nCoins = 2
)

var (
	two   = big.NewInt(2)
	three = big.NewInt(3)
	four  = big.NewInt(4)
	// convergenceTolerance is one unit of the smallest denomination.
	convergenceTolerance = big.NewInt(1)
)

// stableSwapOut calculates the output for an exact input. The fee is taken
// from the input; the output is floored with an extra unit withheld so
// rounding always favors the pool.
func stableSwapOut(amountIn *big.Int, tokenIn, tokenOut uint64, pool registry.Pool) (*big.Int, error) {
	if amountIn == nil {
		return nil, ErrNilAmount
	}
	if amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	reserveIn, reserveOut, err := orientedReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if err := checkLiquidityFloor(reserveIn, reserveOut, pool.ID); err != nil {
		return nil, err
	}
	amp := poolAmp(pool)

	d, err := invariantD(reserveIn, reserveOut, amp, pool.ID)
	if err != nil {
		return nil, err
	}

	// Fee on input, floored.
	feeMultiplier := new(big.Int).Sub(basisPointDivisor, big.NewInt(int64(pool.FeeBps)))
	inAfterFee := new(big.Int).Mul(amountIn, feeMultiplier)
	inAfterFee.Div(inAfterFee, basisPointDivisor)
	if inAfterFee.Sign() <= 0 {
		return nil, fmt.Errorf("%w: input too small after fee", ErrInsufficientLiquidity)
	}

	newIn := new(big.Int).Add(reserveIn, inAfterFee)
	newOut, err := solveOtherReserve(newIn, d, amp, pool.ID)
	if err != nil {
		return nil, err
	}

	amountOut := new(big.Int).Sub(reserveOut, newOut)
	amountOut.Sub(amountOut, one) // withhold one unit against rounding drift
	if amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pool %d output would be zero", ErrInsufficientLiquidity, pool.ID)
	}
	return amountOut, nil
}

// stableSwapIn calculates the required input for an exact output. The result
// is grossed up for the fee and rounded up so rounding always favors the pool.
func stableSwapIn(amountOut *big.Int, tokenIn, tokenOut uint64, pool registry.Pool) (*big.Int, error) {
	if amountOut == nil {
		return nil, ErrNilAmount
	}
	if amountOut.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	reserveIn, reserveOut, err := orientedReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if err := checkLiquidityFloor(reserveIn, reserveOut, pool.ID); err != nil {
		return nil, err
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", ErrInsufficientLiquidity, amountOut.String(), reserveOut.String())
	}
	amp := poolAmp(pool)

	d, err := invariantD(reserveIn, reserveOut, amp, pool.ID)
	if err != nil {
		return nil, err
	}

	newOut := new(big.Int).Sub(reserveOut, amountOut)
	newIn, err := solveOtherReserve(newOut, d, amp, pool.ID)
	if err != nil {
		return nil, err
	}

	inAfterFee := new(big.Int).Sub(newIn, reserveIn)
	inAfterFee.Add(inAfterFee, one) // round the pre-fee requirement up
	if inAfterFee.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pool %d cannot serve requested output", ErrInsufficientLiquidity, pool.ID)
	}

	// Gross up for the input fee, rounding up.
	feeMultiplier := new(big.Int).Sub(basisPointDivisor, big.NewInt(int64(pool.FeeBps)))
	numerator := new(big.Int).Mul(inAfterFee, basisPointDivisor)
	amountIn, remainder := new(big.Int).QuoRem(numerator, feeMultiplier, new(big.Int))
	if remainder.Sign() != 0 {
		amountIn.Add(amountIn, one)
	}
	return amountIn, nil
}

// poolAmp returns the amplification coefficient, defaulting to 1 for pools
// registered without one.
func poolAmp(pool registry.Pool) *big.Int {
	if pool.Amp == 0 {
		return big.NewInt(1)
	}
	return new(big.Int).SetUint64(pool.Amp)
}

// invariantD solves for D in the two-coin stable-swap invariant via Newton
// iteration: Ann*S + 2*D_P = Ann*D + 3*D_P applied iteratively with
// D_P = D^3 / (4*x*y). Converges within one unit or the pool is treated as
// illiquid.
func invariantD(x, y, amp *big.Int, poolID uint64) (*big.Int, error) {
	s := new(big.Int).Add(x, y)
	if s.Sign() == 0 {
		return nil, fmt.Errorf("%w: pool %d has no reserves", ErrInsufficientLiquidity, poolID)
	}

	ann := new(big.Int).Mul(amp, four) // A * n^n, n=2

	d := new(big.Int).Set(s)
	dPrev := new(big.Int)
	dP := new(big.Int)
	num := new(big.Int)
	den := new(big.Int)
	diff := new(big.Int)

	for i := 0; i < maxIterations; i++ {
		// dP = D^3 / (4*x*y)
		dP.Mul(d, d)
		dP.Mul(dP, d)
		den.Mul(x, y)
		den.Mul(den, four)
		if den.Sign() == 0 {
			return nil, fmt.Errorf("%w: pool %d has a zero reserve", ErrInsufficientLiquidity, poolID)
		}
		dP.Div(dP, den)

		dPrev.Set(d)

		// D = (Ann*S + 2*dP) * D / ((Ann-1)*D + 3*dP)
		num.Mul(ann, s)
		num.Add(num, new(big.Int).Mul(dP, two))
		num.Mul(num, d)

		den.Sub(ann, one)
		den.Mul(den, d)
		den.Add(den, new(big.Int).Mul(dP, three))

		d.Div(num, den)

		diff.Sub(d, dPrev)
		if diff.CmpAbs(convergenceTolerance) <= 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: pool %d invariant did not converge", ErrInsufficientLiquidity, poolID)
}

// solveOtherReserve finds the counter-reserve y for a known reserve x so that
// the invariant D holds, via Newton iteration on
// y = (y^2 + c) / (2y + b - D) with c = D^3/(4*x*Ann) and b = x + D/Ann.
func solveOtherReserve(x, d, amp *big.Int, poolID uint64) (*big.Int, error) {
	if x.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pool %d reserve exhausted", ErrInsufficientLiquidity, poolID)
	}

	ann := new(big.Int).Mul(amp, four)

	// c = D^3 / (2x * 2*Ann)
	c := new(big.Int).Mul(d, d)
	c.Div(c, new(big.Int).Mul(x, two))
	c.Mul(c, d)
	c.Div(c, new(big.Int).Mul(ann, two))

	// b = x + D/Ann
	b := new(big.Int).Div(d, ann)
	b.Add(b, x)

	y := new(big.Int).Set(d)
	yPrev := new(big.Int)
	num := new(big.Int)
	den := new(big.Int)
	diff := new(big.Int)

	for i := 0; i < maxIterations; i++ {
		yPrev.Set(y)

		// y = (y^2 + c) / (2y + b - D)
		num.Mul(y, y)
		num.Add(num, c)

		den.Mul(y, two)
		den.Add(den, b)
		den.Sub(den, d)
		if den.Sign() <= 0 {
			return nil, fmt.Errorf("%w: pool %d solve degenerated", ErrInsufficientLiquidity, poolID)
		}

		y.Div(num, den)

		diff.Sub(y, yPrev)
		if diff.CmpAbs(convergenceTolerance) <= 0 {
			return y, nil
		}
	}
	return nil, fmt.Errorf("%w: pool %d solve did not converge", ErrInsufficientLiquidity, poolID)
}
