package pricing

import (
	"github.com/bannersonthefly/banners-backend/pkg/money"
)

// QuantityTier is one step of the "Buy More, Save More" ladder.
type QuantityTier struct {
	MinQuantity int     `json:"minQuantity"`
	Rate        float64 `json:"rate"`
	Label       string  `json:"label"`
}

// quantityTiers must stay sorted by MinQuantity ascending.
var quantityTiers = []QuantityTier{
	{MinQuantity: 1, Rate: 0.00, Label: "0% OFF"},
	{MinQuantity: 2, Rate: 0.05, Label: "5% OFF"},
	{MinQuantity: 3, Rate: 0.07, Label: "7% OFF"},
	{MinQuantity: 4, Rate: 0.10, Label: "10% OFF"},
	{MinQuantity: 5, Rate: 0.13, Label: "13% OFF"},
}

// QuantityTiers returns a copy of the tier ladder for display surfaces.
func QuantityTiers() []QuantityTier {
	tiers := make([]QuantityTier, len(quantityTiers))
	copy(tiers, quantityTiers)
	return tiers
}

// QuantityTierFor returns the highest tier the quantity qualifies for.
func QuantityTierFor(qty int) QuantityTier {
	selected := quantityTiers[0]
	if qty < 1 {
		return selected
	}
	for _, tier := range quantityTiers {
		if qty >= tier.MinQuantity {
			selected = tier
		} else {
			break
		}
	}
	return selected
}

// QuantityDiscountRate returns the discount fraction for a quantity.
func QuantityDiscountRate(qty int) float64 {
	if qty < 1 {
		return 0
	}
	return QuantityTierFor(qty).Rate
}

// QuantityDiscountResult captures the quantity discount applied to a subtotal.
type QuantityDiscountResult struct {
	Quantity                   int     `json:"quantity"`
	Rate                       float64 `json:"rate"`
	DiscountCents              int     `json:"discountCents"`
	SubtotalBeforeCents        int     `json:"subtotalBeforeDiscountCents"`
	SubtotalAfterDiscountCents int     `json:"subtotalAfterDiscountCents"`
}

// QuantityDiscount computes the tiered discount for a subtotal and quantity.
func QuantityDiscount(subtotalCents, qty int) QuantityDiscountResult {
	rate := QuantityDiscountRate(qty)
	discountCents := money.Round(float64(subtotalCents) * rate)
	return QuantityDiscountResult{
		Quantity:                   qty,
		Rate:                       rate,
		DiscountCents:              discountCents,
		SubtotalBeforeCents:        subtotalCents,
		SubtotalAfterDiscountCents: subtotalCents - discountCents,
	}
}
