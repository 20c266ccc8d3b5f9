package api

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var errBadAmount = errors.New("amount must be a positive decimal number")

// parseAmount converts a human decimal string into raw units of a token with
// the given decimals. Precision beyond the token's decimals is truncated.
func parseAmount(s string, decimals uint8) (*big.Int, error) {
	if s == "" {
		return nil, errBadAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() <= 0 {
		return nil, errBadAmount
	}
	raw := d.Shift(int32(decimals)).Truncate(0).BigInt()
	if raw.Sign() <= 0 {
		return nil, errBadAmount
	}
	return raw, nil
}

// formatAmount renders raw units as a decimal string.
func formatAmount(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

// formatPrice renders out/in as a decimal price with a fixed display scale.
func formatPrice(amountIn *big.Int, inDecimals uint8, amountOut *big.Int, outDecimals uint8) string {
	if amountIn == nil || amountIn.Sign() == 0 || amountOut == nil {
		return "0"
	}
	in := decimal.NewFromBigInt(amountIn, -int32(inDecimals))
	out := decimal.NewFromBigInt(amountOut, -int32(outDecimals))
	return out.DivRound(in, 12).String()
}
