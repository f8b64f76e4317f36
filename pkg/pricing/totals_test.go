package pricing

import (
	"reflect"
	"testing"
)

func TestComputeTotalsOptionModes(t *testing.T) {
	t.Parallel()

	cart := Cart{
		Items: []CartItem{
			{
				ID:             "line-1",
				SKU:            "BAN-48x24",
				Title:          `Custom Banner 48" x 24"`,
				UnitPriceCents: 5000,
				Qty:            3,
				Options: []CartOption{
					{ID: "rope", Name: "Rope", PriceCents: 200, Mode: PerItem, QuantityPerItem: qtyPer(2)},
					{ID: "design", Name: "Design proof", PriceCents: 500, Mode: PerOrder},
				},
			},
		},
	}

	totals := ComputeTotals(cart)

	if len(totals.ItemTotals) != 1 {
		t.Fatalf("expected 1 item total, got %d", len(totals.ItemTotals))
	}
	line := totals.ItemTotals[0]
	if line.UnitEachCents != 5400 {
		t.Fatalf("unit each = %d, want 5400", line.UnitEachCents)
	}
	if line.LineTotalCents != 16700 {
		t.Fatalf("line total = %d, want 16700", line.LineTotalCents)
	}
	if line.PerItemOptionsCents != 400 {
		t.Fatalf("per-item options = %d, want 400", line.PerItemOptionsCents)
	}
	if line.PerOrderOptionsCents != 500 {
		t.Fatalf("per-order options = %d, want 500", line.PerOrderOptionsCents)
	}
	if totals.SubtotalCents != 16700 {
		t.Fatalf("subtotal = %d, want 16700", totals.SubtotalCents)
	}
}

func TestComputeTotalsDefaultQuantityPerItem(t *testing.T) {
	t.Parallel()

	cart := Cart{
		Items: []CartItem{
			{
				ID:             "line-1",
				UnitPriceCents: 1000,
				Qty:            2,
				Options: []CartOption{
					{ID: "grommets", PriceCents: 150, Mode: PerItem},
				},
			},
		},
	}

	totals := ComputeTotals(cart)
	if totals.ItemTotals[0].UnitEachCents != 1150 {
		t.Fatalf("unit each = %d, want 1150", totals.ItemTotals[0].UnitEachCents)
	}
	if totals.SubtotalCents != 2300 {
		t.Fatalf("subtotal = %d, want 2300", totals.SubtotalCents)
	}
}

func TestComputeTotalsExplicitZeroQuantityPerItem(t *testing.T) {
	t.Parallel()

	// An explicit zero is not "unset": the option contributes nothing.
	cart := Cart{
		Items: []CartItem{
			{
				ID:             "line-1",
				UnitPriceCents: 1000,
				Qty:            1,
				Options: []CartOption{
					{ID: "grommets", PriceCents: 500, Mode: PerItem, QuantityPerItem: qtyPer(0)},
				},
			},
		},
	}

	totals := ComputeTotals(cart)
	if totals.ItemTotals[0].UnitEachCents != 1000 {
		t.Fatalf("unit each = %d, want 1000", totals.ItemTotals[0].UnitEachCents)
	}
	if totals.ItemTotals[0].PerItemOptionsCents != 0 {
		t.Fatalf("per-item options = %d, want 0", totals.ItemTotals[0].PerItemOptionsCents)
	}
	if totals.SubtotalCents != 1000 {
		t.Fatalf("subtotal = %d, want 1000", totals.SubtotalCents)
	}
}

func TestComputeTotalsTaxOnPostDiscountSubtotal(t *testing.T) {
	t.Parallel()

	cart := Cart{
		Items: []CartItem{
			{ID: "line-1", UnitPriceCents: 10000, Qty: 1},
		},
		TaxRatePct:     6,
		DiscountsCents: 1000,
		ShippingCents:  750,
	}

	totals := ComputeTotals(cart)
	if totals.SubtotalAfterDiscountsCents != 9000 {
		t.Fatalf("post-discount subtotal = %d, want 9000", totals.SubtotalAfterDiscountsCents)
	}
	if totals.TaxCents != 540 {
		t.Fatalf("tax = %d, want 540", totals.TaxCents)
	}
	if totals.TotalCents != 9000+540+750 {
		t.Fatalf("total = %d, want %d", totals.TotalCents, 9000+540+750)
	}
}

func TestComputeTotalsIsPureAndDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	cart := Cart{
		Items: []CartItem{
			{
				ID:             "line-1",
				UnitPriceCents: 2599,
				Qty:            4,
				Options: []CartOption{
					{ID: "hem", PriceCents: 99, Mode: PerItem, QuantityPerItem: qtyPer(3)},
					{ID: "proof", PriceCents: 499, Mode: PerOrder},
				},
			},
		},
		TaxRatePct:     6.5,
		ShippingCents:  1200,
		DiscountsCents: 250,
	}
	snapshot := Cart{
		Items:          append([]CartItem(nil), cart.Items...),
		TaxRatePct:     cart.TaxRatePct,
		ShippingCents:  cart.ShippingCents,
		DiscountsCents: cart.DiscountsCents,
	}
	snapshot.Items[0].Options = append([]CartOption(nil), cart.Items[0].Options...)

	first := ComputeTotals(cart)
	second := ComputeTotals(cart)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("totals differ between identical calls:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(cart.Items[0], snapshot.Items[0]) || cart.DiscountsCents != snapshot.DiscountsCents {
		t.Fatalf("input cart was mutated: %+v", cart)
	}
}

// A discount larger than the subtotal flows through uncapped: callers
// are responsible for applying CapDiscount first. Pinned so the engine
// stays a literal transcription of the documented arithmetic.
func TestComputeTotalsNegativeSubtotalFlowsThrough(t *testing.T) {
	t.Parallel()

	cart := Cart{
		Items:          []CartItem{{ID: "line-1", UnitPriceCents: 1000, Qty: 1}},
		TaxRatePct:     6,
		DiscountsCents: 1500,
	}

	totals := ComputeTotals(cart)
	if totals.SubtotalAfterDiscountsCents != -500 {
		t.Fatalf("post-discount subtotal = %d, want -500", totals.SubtotalAfterDiscountsCents)
	}
}

func TestCapDiscount(t *testing.T) {
	t.Parallel()

	if got := CapDiscount(1500, 1000); got != 1000 {
		t.Fatalf("CapDiscount(1500, 1000) = %d, want 1000", got)
	}
	if got := CapDiscount(-5, 1000); got != 0 {
		t.Fatalf("CapDiscount(-5, 1000) = %d, want 0", got)
	}
	if got := CapDiscount(400, 1000); got != 400 {
		t.Fatalf("CapDiscount(400, 1000) = %d, want 400", got)
	}

	cart := Cart{
		Items:          []CartItem{{ID: "line-1", UnitPriceCents: 1000, Qty: 1}},
		TaxRatePct:     6,
		DiscountsCents: CapDiscount(1500, 1000),
	}
	totals := ComputeTotals(cart)
	if totals.SubtotalAfterDiscountsCents != 0 || totals.TotalCents != 0 {
		t.Fatalf("capped totals = %+v, want zero post-discount subtotal and total", totals)
	}
}

func TestComputeTotalsRoundingOrderPinned(t *testing.T) {
	t.Parallel()

	// 12.345% tax over an odd subtotal exposes the independent rounding
	// of each step. Deferred rounding would yield a different total.
	cart := Cart{
		Items: []CartItem{
			{ID: "a", UnitPriceCents: 333, Qty: 3},
			{ID: "b", UnitPriceCents: 667, Qty: 1},
		},
		TaxRatePct:    12.345,
		ShippingCents: 99,
	}

	totals := ComputeTotals(cart)
	if totals.SubtotalCents != 1666 {
		t.Fatalf("subtotal = %d, want 1666", totals.SubtotalCents)
	}
	// round(1666 * 0.12345) = round(205.6677) = 206
	if totals.TaxCents != 206 {
		t.Fatalf("tax = %d, want 206", totals.TaxCents)
	}
	if totals.TotalCents != 1666+206+99 {
		t.Fatalf("total = %d, want %d", totals.TotalCents, 1666+206+99)
	}
}

func qtyPer(n int) *int {
	return &n
}
