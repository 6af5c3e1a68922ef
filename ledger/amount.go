package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a display amount such as "12.5" into integer base
// units using the coin's decimal exponent. Amounts that are not strictly
// positive, carry more precision than the exponent allows, or overflow a
// uint64 are rejected.
func ToBaseUnits(display string, decimals int) (uint64, error) {
	value, err := decimal.NewFromString(display)
	if err != nil {
		return 0, fmt.Errorf("ledger: parse amount %q: %w", display, err)
	}
	if !value.IsPositive() {
		return 0, fmt.Errorf("ledger: amount %q must be positive", display)
	}
	scaled := value.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("ledger: amount %q exceeds %d decimal places", display, decimals)
	}
	base := scaled.BigInt()
	if !base.IsUint64() {
		return 0, fmt.Errorf("ledger: amount %q does not fit in 64 bits", display)
	}
	return base.Uint64(), nil
}

// FormatBaseUnits renders integer base units as a display amount with
// trailing zeros trimmed, e.g. 550000000 with 9 decimals -> "0.55".
func FormatBaseUnits(amount uint64, decimals int) string {
	return decimal.NewFromUint64(amount).Shift(int32(-decimals)).String()
}
