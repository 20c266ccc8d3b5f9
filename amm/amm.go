// Package amm prices single-pool liquidity operations. Unlike swap routing
// this never touches the graph: every operation addresses one pool directly.
package amm

import (
	"errors"
	"math/big"

	"github.com/tonroute/tonroute-go/registry"
)

// Operation selects the liquidity action being priced.
type Operation string

const (
	OpAdd    Operation = "add"
	OpRemove Operation = "remove"
)

var (
	// ErrUnknownOperation is returned for an operation other than add/remove.
	ErrUnknownOperation = errors.New("unknown liquidity operation")
	// ErrInvalidAmount is returned for non-positive or missing amounts.
	ErrInvalidAmount = errors.New("liquidity amount must be positive")
	// ErrPoolNotFound is returned when the addressed pool does not exist.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrEmptyPool is returned when the pool has no reserves or LP supply to
	// price against.
	ErrEmptyPool = errors.New("pool has no liquidity")
)

// LiquidityQuote is the priced outcome of an add or remove operation.
// Amounts follow the pool's rounding policy: LP minted and assets paid out
// are floored, the matching deposit is ceiled.
type LiquidityQuote struct {
	Operation   Operation `json:"operation"`
	PoolID      uint64    `json:"poolId"`
	PoolAddress string    `json:"poolAddress"`
	Amount0     *big.Int  `json:"amount0"`
	Amount1     *big.Int  `json:"amount1"`
	LPAmount    *big.Int  `json:"lpAmount"`
	ShareBps    uint32    `json:"shareBps"`
}

// QuoteAdd prices a deposit led by amount0 of the pool's token0. The token1
// leg is the ratio-matching amount, rounded up; LP minted is rounded down.
func QuoteAdd(pool registry.Pool, amount0 *big.Int) (*LiquidityQuote, error) {
	if amount0 == nil || amount0.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if !pool.Tradable() || pool.LPSupply == nil || pool.LPSupply.Sign() <= 0 {
		return nil, ErrEmptyPool
	}

	// amount1 = ceil(amount0 * reserve1 / reserve0)
	amount1, rem := new(big.Int).QuoRem(
		new(big.Int).Mul(amount0, pool.Reserve1), pool.Reserve0, new(big.Int))
	if rem.Sign() != 0 {
		amount1.Add(amount1, big.NewInt(1))
	}

	// minted = floor(amount0 * supply / reserve0)
	minted := new(big.Int).Mul(amount0, pool.LPSupply)
	minted.Div(minted, pool.Reserve0)

	return &LiquidityQuote{
		Operation:   OpAdd,
		PoolID:      pool.ID,
		PoolAddress: pool.Address,
		Amount0:     amount0,
		Amount1:     amount1,
		LPAmount:    minted,
		ShareBps:    shareBps(minted, new(big.Int).Add(pool.LPSupply, minted)),
	}, nil
}

// QuoteRemove prices a burn of lpAmount LP tokens. Both asset legs are
// rounded down.
func QuoteRemove(pool registry.Pool, lpAmount *big.Int) (*LiquidityQuote, error) {
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if !pool.Tradable() || pool.LPSupply == nil || pool.LPSupply.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	if lpAmount.Cmp(pool.LPSupply) > 0 {
		return nil, ErrInvalidAmount
	}

	amount0 := new(big.Int).Mul(lpAmount, pool.Reserve0)
	amount0.Div(amount0, pool.LPSupply)
	amount1 := new(big.Int).Mul(lpAmount, pool.Reserve1)
	amount1.Div(amount1, pool.LPSupply)

	return &LiquidityQuote{
		Operation:   OpRemove,
		PoolID:      pool.ID,
		PoolAddress: pool.Address,
		Amount0:     amount0,
		Amount1:     amount1,
		LPAmount:    lpAmount,
		ShareBps:    shareBps(lpAmount, pool.LPSupply),
	}, nil
}

// shareBps reports part/whole in basis points, floored.
func shareBps(part, whole *big.Int) uint32 {
	if whole.Sign() <= 0 {
		return 0
	}
	bps := new(big.Int).Mul(part, big.NewInt(10000))
	bps.Div(bps, whole)
	if !bps.IsUint64() || bps.Uint64() > 10000 {
		return 10000
	}
	return uint32(bps.Uint64())
}

// PositionInfo is a read-only view of a pool's current state.
type PositionInfo struct {
	PoolID       uint64   `json:"poolId"`
	PoolAddress  string   `json:"poolAddress"`
	Token0Symbol string   `json:"token0"`
	Token1Symbol string   `json:"token1"`
	Reserve0     *big.Int `json:"reserve0"`
	Reserve1     *big.Int `json:"reserve1"`
	LPSupply     *big.Int `json:"lpSupply"`
	FeeBps       uint16   `json:"feeBps"`
	Curve        string   `json:"poolType"`
}

// Position summarizes the pool for the given snapshot.
func Position(snap *registry.Snapshot, poolAddress string) (*PositionInfo, error) {
	pool, ok := snap.PoolByAddress(poolAddress)
	if !ok {
		return nil, ErrPoolNotFound
	}
	t0, _ := snap.TokenByID(pool.Token0)
	t1, _ := snap.TokenByID(pool.Token1)
	return &PositionInfo{
		PoolID:       pool.ID,
		PoolAddress:  pool.Address,
		Token0Symbol: t0.Symbol,
		Token1Symbol: t1.Symbol,
		Reserve0:     pool.Reserve0,
		Reserve1:     pool.Reserve1,
		LPSupply:     pool.LPSupply,
		FeeBps:       pool.FeeBps,
		Curve:        string(pool.Curve),
	}, nil
}
