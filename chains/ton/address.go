// Package ton is the chain collaborator boundary: wallet address validation
// and the HTTP backend used for settlement, gas estimation, balances and
// chain status.
package ton

import (
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
)

// ErrInvalidAddress is returned for a wallet string that does not parse as a
// TON address in any supported form.
var ErrInvalidAddress = errors.New("invalid wallet address")

// ValidateAddress accepts user-friendly (base64) and raw (workchain:hex)
// address forms and returns the normalized user-friendly string.
func ValidateAddress(wallet string) (string, error) {
	if wallet == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	addr, err := address.ParseAddr(wallet)
	if err != nil {
		addr, err = address.ParseRawAddr(wallet)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, wallet)
	}
	return addr.String(), nil
}
