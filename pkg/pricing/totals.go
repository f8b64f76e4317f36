package pricing

import (
	"github.com/bannersonthefly/banners-backend/pkg/money"
)

// ComputeTotals is the single authoritative cart pricing computation.
// Every handler and surface that prices a cart must route through it;
// no other code duplicates this arithmetic.
//
// Every intermediate value is rounded independently. The rounding order
// is load-bearing: deferring rounds produces different totals for
// fractional edge cases, so callers must not "simplify" it.
//
// DiscountsCents is taken as given. Callers resolve discount codes and
// cap the amount at the subtotal before calling; a discount larger than
// the subtotal flows through as a negative post-discount subtotal here.
func ComputeTotals(cart Cart) CartTotals {
	itemTotals := make([]ItemTotal, 0, len(cart.Items))
	var subtotal float64

	for _, item := range cart.Items {
		var perItemOpts, perOrderOpts float64
		for _, option := range item.Options {
			switch option.Mode {
			case PerItem:
				qtyPerItem := 1
				if option.QuantityPerItem != nil {
					qtyPerItem = *option.QuantityPerItem
				}
				perItemOpts += float64(option.PriceCents * qtyPerItem)
			case PerOrder:
				perOrderOpts += float64(option.PriceCents)
			}
		}

		unitEach := money.Round(float64(item.UnitPriceCents) + perItemOpts)
		lineTotal := money.Round(float64(unitEach*item.Qty) + perOrderOpts)

		itemTotals = append(itemTotals, ItemTotal{
			ItemID:               item.ID,
			UnitEachCents:        unitEach,
			LineTotalCents:       lineTotal,
			PerItemOptionsCents:  money.Round(perItemOpts),
			PerOrderOptionsCents: money.Round(perOrderOpts),
		})
		subtotal += float64(lineTotal)
	}

	subtotalCents := money.Round(subtotal)
	discountsCents := cart.DiscountsCents
	subtotalAfterDiscounts := money.Round(float64(subtotalCents - discountsCents))

	// Tax applies to the post-discount subtotal.
	taxCents := money.Round(float64(subtotalAfterDiscounts) * cart.TaxRatePct / 100)
	totalCents := money.Round(float64(subtotalAfterDiscounts + taxCents + cart.ShippingCents))

	return CartTotals{
		ItemTotals:                  itemTotals,
		SubtotalCents:               subtotalCents,
		DiscountsCents:              discountsCents,
		SubtotalAfterDiscountsCents: subtotalAfterDiscounts,
		TaxCents:                    taxCents,
		ShippingCents:               cart.ShippingCents,
		TotalCents:                  totalCents,
	}
}

// CapDiscount limits a resolved discount so the post-discount subtotal
// cannot go negative. Call sites apply this before ComputeTotals.
func CapDiscount(discountCents, subtotalCents int) int {
	if discountCents < 0 {
		return 0
	}
	if discountCents > subtotalCents {
		return subtotalCents
	}
	return discountCents
}
