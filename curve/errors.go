package curve

import (
	"errors"
	"math/big"
)

var (
	// ErrInvalidAmount is returned when an input/output amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrTokenMismatch is returned when the specified input/output tokens do not match the pool's tokens.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrInvalidState is returned for internal calculation errors, like division by zero.
	ErrInvalidState = errors.New("invalid internal state")
	// ErrInsufficientLiquidity is returned when the pool cannot serve the
	// requested trade: reserves below the liquidity floor, an amountOut at or
	// beyond the reserve, or a stable invariant that failed to converge.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap")
	// ErrUnknownCurve is returned for a pool whose curve type has no pricing strategy.
	ErrUnknownCurve = errors.New("unknown curve type")
)

// minReserve is the minimal-liquidity floor: pools with a reserve below this
// many smallest-denomination units are not priced.
var minReserve = big.NewInt(1000)
