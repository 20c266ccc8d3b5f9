package engine

import (
	"fmt"
	"math/big"
)

// Network identifies which chain deployment an operation targets.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// ParseNetwork maps a request string to a Network. The empty string
// defaults to mainnet.
func ParseNetwork(s string) (Network, error) {
	switch s {
	case "":
		return NetworkMainnet, nil
	case string(NetworkMainnet):
		return NetworkMainnet, nil
	case string(NetworkTestnet):
		return NetworkTestnet, nil
	}
	return "", fmt.Errorf("unknown network %q", s)
}

// CurveType selects the pricing curve of a pool.
type CurveType string

const (
	// CurveVolatile is the constant-product (x*y=k) curve.
	CurveVolatile CurveType = "volatile"
	// CurveStable is the amplified stable-swap curve for correlated assets.
	CurveStable CurveType = "stable"
)

// Side is the trade direction of a quote.
type Side string

const (
	// SideSell quotes an exact input amount.
	SideSell Side = "SELL"
	// SideBuy quotes an exact output amount.
	SideBuy Side = "BUY"
)

// ParseSide maps a request string to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case string(SideSell):
		return SideSell, nil
	case string(SideBuy):
		return SideBuy, nil
	}
	return "", fmt.Errorf("side must be SELL or BUY, got %q", s)
}

// PoolUpdate carries fresh reserves for one pool from the registry feed.
type PoolUpdate struct {
	PoolID   uint64   `json:"poolId"`
	Reserve0 *big.Int `json:"reserve0"`
	Reserve1 *big.Int `json:"reserve1"`
}

// ChainSummary contains only the essential chain position for clients.
type ChainSummary struct {
	Seqno      uint64 `json:"seqno"`
	Timestamp  uint64 `json:"timestamp"`
	ReceivedAt int64  `json:"receivedAt"` // Unix nanoseconds when processing of the update started.
}
