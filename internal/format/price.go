// Package format renders on-chain integers for display.
package format

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Decimals is the number of fractional digits of the native currency.
	Decimals = 18

	// Unit is the display suffix of formatted prices.
	Unit = "ETH"

	// emptyFraction replaces a fraction that is zero after trimming.
	emptyFraction = "0000"
)

// FormatPrice converts a wei amount given as a decimal integer string
// into "{whole}.{fraction} ETH". Trailing zero fraction digits are dropped;
// a zero fraction is shown as ".0000".
// Input that is not a non-negative integer is returned unchanged.
func FormatPrice(wei string) string {
	if !isDigits(wei) {
		return wei
	}

	d, err := decimal.NewFromString(wei)
	if err != nil {
		return wei
	}

	whole, fraction, _ := strings.Cut(d.Shift(-Decimals).String(), ".")
	fraction = strings.TrimRight(fraction, "0")
	if fraction == "" {
		fraction = emptyFraction
	}

	return whole + "." + fraction + " " + Unit
}

// FormatWei formats a wei amount. Nil or negative values render as "-".
func FormatWei(wei *big.Int) string {
	if wei == nil || wei.Sign() < 0 {
		return "-"
	}
	return FormatPrice(wei.String())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
