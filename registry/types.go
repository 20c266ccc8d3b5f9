package registry

import (
	"math/big"

	"github.com/tonroute/tonroute-go/engine"
)

// Token is a safe, structured representation of a token's data for external use.
// Tokens are immutable once registered.
type Token struct {
	ID       uint64 `json:"id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// Pool represents the data for a single liquidity pool.
// Reserve0/Reserve1 are raw amounts in the smallest denomination of the
// respective token. Amp is only meaningful for stable pools.
type Pool struct {
	ID       uint64           `json:"id"`
	Address  string           `json:"address"`
	Token0   uint64           `json:"token0"`
	Token1   uint64           `json:"token1"`
	Reserve0 *big.Int         `json:"reserve0"`
	Reserve1 *big.Int         `json:"reserve1"`
	FeeBps   uint16           `json:"feeBps"` // i.e. 30 for 0.3%
	Curve    engine.CurveType `json:"curve"`
	Amp      uint64           `json:"amp,omitempty"`
	LPSupply *big.Int         `json:"lpSupply,omitempty"`
}

// Clone returns a deep copy so snapshot holders never alias live reserves.
func (p Pool) Clone() Pool {
	c := p
	if p.Reserve0 != nil {
		c.Reserve0 = new(big.Int).Set(p.Reserve0)
	}
	if p.Reserve1 != nil {
		c.Reserve1 = new(big.Int).Set(p.Reserve1)
	}
	if p.LPSupply != nil {
		c.LPSupply = new(big.Int).Set(p.LPSupply)
	}
	return c
}

// Tradable reports whether the pool has liquidity on both sides.
func (p Pool) Tradable() bool {
	return p.Reserve0 != nil && p.Reserve1 != nil &&
		p.Reserve0.Sign() > 0 && p.Reserve1.Sign() > 0
}
