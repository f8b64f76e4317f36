package money

import (
	"fmt"
	"math"
)

// Round rounds a fractional cent amount to the nearest whole cent,
// half away from zero.
func Round(n float64) int {
	return int(math.Round(n))
}

// ToCents converts a dollar amount into integer cents.
func ToCents(dollars float64) int {
	return Round(dollars * 100)
}

// FromCents converts integer cents back into a dollar amount. The round
// trip through ToCents is lossy for sub-cent fractions.
func FromCents(cents int) float64 {
	return float64(cents) / 100
}

// Tax computes the tax owed on a subtotal. The rate is a fraction,
// e.g. 0.06 for 6%.
func Tax(subtotalCents int, rate float64) int {
	return Round(float64(subtotalCents) * rate)
}

// Format renders cents as a display string, e.g. 1050 -> "$10.50".
func Format(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
