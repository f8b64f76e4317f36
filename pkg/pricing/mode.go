package pricing

import "fmt"

// PricingMode controls how an option's price scales with quantity.
type PricingMode string

const (
	// PerItem options multiply by quantity-per-item and then by line qty.
	PerItem PricingMode = "per_item"
	// PerOrder options apply once per line regardless of quantity.
	PerOrder PricingMode = "per_order"
)

var validPricingModes = []PricingMode{
	PerItem,
	PerOrder,
}

// String implements fmt.Stringer.
func (m PricingMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PricingMode.
func (m PricingMode) IsValid() bool {
	for _, candidate := range validPricingModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePricingMode converts raw input into a PricingMode.
func ParsePricingMode(value string) (PricingMode, error) {
	for _, candidate := range validPricingModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pricing mode %q", value)
}
