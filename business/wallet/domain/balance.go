package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// BalancePrecision is the number of decimals shown for balances.
const BalancePrecision = 4

// defaultDecimals applies when the chain is not in the registry.
const defaultDecimals = 18

// FormatBalance converts a raw wei amount to a fixed-precision display string.
func FormatBalance(wei *big.Int, decimals uint8) string {
	if wei == nil {
		wei = new(big.Int)
	}
	return decimal.NewFromBigInt(wei, -int32(decimals)).StringFixed(BalancePrecision)
}

// FormatBalanceOn formats using the chain's native currency decimals when known.
func FormatBalanceOn(registry *NetworkRegistry, chainID uint64, wei *big.Int) string {
	var decimals uint8 = defaultDecimals
	if registry != nil {
		if n, ok := registry.Lookup(chainID); ok && n.NativeCurrency.Decimals != 0 {
			decimals = n.NativeCurrency.Decimals
		}
	}
	return FormatBalance(wei, decimals)
}
