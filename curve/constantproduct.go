package curve

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/tonroute/tonroute-go/registry"
)

var (
	// basisPointDivisor is a constant representing 100% in basis points (10000).
	basisPointDivisor = big.NewInt(10000)

	one = big.NewInt(1)
)

// cpCalculator holds reusable big.Int objects to avoid memory allocations
// during constant-product calculations. Instances are NOT safe for concurrent
// use by themselves; they are managed by the sync.Pool below.
type cpCalculator struct {
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int

	numeratorIn   *big.Int
	denominatorIn *big.Int
}

var cpCalculatorPool = sync.Pool{
	New: func() any {
		return &cpCalculator{
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
			numeratorIn:     new(big.Int),
			denominatorIn:   new(big.Int),
		}
	},
}

// constantProductOut calculates the output for an exact input on an x*y=k
// pool. The result is floored so rounding always favors the pool.
func constantProductOut(amountIn *big.Int, tokenIn, tokenOut uint64, pool registry.Pool) (*big.Int, error) {
	calc := cpCalculatorPool.Get().(*cpCalculator)
	defer cpCalculatorPool.Put(calc)
	return calc.getAmountOut(amountIn, tokenIn, tokenOut, pool)
}

// constantProductIn calculates the required input for an exact output on an
// x*y=k pool. The result is rounded up so rounding always favors the pool.
func constantProductIn(amountOut *big.Int, tokenIn, tokenOut uint64, pool registry.Pool) (*big.Int, error) {
	calc := cpCalculatorPool.Get().(*cpCalculator)
	defer cpCalculatorPool.Put(calc)
	return calc.getAmountIn(amountOut, tokenIn, tokenOut, pool)
}

func (c *cpCalculator) getAmountOut(amountIn *big.Int, tokenIn, tokenOut uint64, pool registry.Pool) (*big.Int, error) {
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

	c.feeMultiplier.Sub(basisPointDivisor, big.NewInt(int64(pool.FeeBps)))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(reserveOut, c.amountInWithFee)
	c.denominator.Mul(reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	if c.denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}

	return new(big.Int).Div(c.numerator, c.denominator), nil
}

func (c *cpCalculator) getAmountIn(amountOut *big.Int, tokenIn, tokenOut uint64, pool registry.Pool) (*big.Int, error) {
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

	c.numeratorIn.Mul(reserveIn, amountOut)
	c.numeratorIn.Mul(c.numeratorIn, basisPointDivisor)

	c.feeMultiplier.Sub(basisPointDivisor, big.NewInt(int64(pool.FeeBps)))
	c.denominatorIn.Sub(reserveOut, amountOut)
	c.denominatorIn.Mul(c.denominatorIn, c.feeMultiplier)

	if c.denominatorIn.Sign() == 0 {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}

	// amountIn = (reserveIn * amountOut * 10000) / ((reserveOut - amountOut) * (10000 - fee)) + 1
	amountIn := new(big.Int).Div(c.numeratorIn, c.denominatorIn)
	return amountIn.Add(amountIn, one), nil
}

// orientedReserves returns (reserveIn, reserveOut) for the given direction.
func orientedReserves(tokenIn, tokenOut uint64, pool registry.Pool) (reserveIn, reserveOut *big.Int, err error) {
	if tokenIn == pool.Token0 && tokenOut == pool.Token1 {
		return pool.Reserve0, pool.Reserve1, nil
	} else if tokenIn == pool.Token1 && tokenOut == pool.Token0 {
		return pool.Reserve1, pool.Reserve0, nil
	}
	return nil, nil, fmt.Errorf("%w: pool %d does not contain the pair %d -> %d", ErrTokenMismatch, pool.ID, tokenIn, tokenOut)
}

func checkLiquidityFloor(reserveIn, reserveOut *big.Int, poolID uint64) error {
	if reserveIn == nil || reserveOut == nil ||
		reserveIn.Cmp(minReserve) < 0 || reserveOut.Cmp(minReserve) < 0 {
		return fmt.Errorf("%w: pool %d reserves below liquidity floor", ErrInsufficientLiquidity, poolID)
	}
	return nil
}
