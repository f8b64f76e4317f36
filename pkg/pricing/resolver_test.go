package pricing

import "testing"

func TestResolveBestDiscountQuantityWins(t *testing.T) {
	t.Parallel()

	// 5 banners -> 13% quantity discount (1300) beats a 10% promo (1000).
	resolved := ResolveBestDiscount(10000, 5, &PromoDiscount{Code: "CART10-ABCDEF12", Percentage: 10})
	if resolved.Type != DiscountTypeQuantity {
		t.Fatalf("type = %s, want quantity", resolved.Type)
	}
	if resolved.AmountCents != 1300 {
		t.Fatalf("amount = %d, want 1300", resolved.AmountCents)
	}
	if resolved.HelperMessage == "" {
		t.Fatal("expected helper message when both discounts were available")
	}
}

func TestResolveBestDiscountPromoWins(t *testing.T) {
	t.Parallel()

	resolved := ResolveBestDiscount(10000, 2, &PromoDiscount{Code: "WEEK20", Percentage: 20})
	if resolved.Type != DiscountTypePromo {
		t.Fatalf("type = %s, want promo", resolved.Type)
	}
	if resolved.AmountCents != 2000 {
		t.Fatalf("amount = %d, want 2000", resolved.AmountCents)
	}
	if resolved.PromoCode != "WEEK20" {
		t.Fatalf("promo code = %q, want WEEK20", resolved.PromoCode)
	}
}

func TestResolveBestDiscountFixedAmountCappedAtSubtotal(t *testing.T) {
	t.Parallel()

	resolved := ResolveBestDiscount(500, 1, &PromoDiscount{Code: "SAVE10", AmountCents: 1000})
	if resolved.AmountCents != 500 {
		t.Fatalf("amount = %d, want capped 500", resolved.AmountCents)
	}
}

func TestResolveBestDiscountTieFavorsQuantity(t *testing.T) {
	t.Parallel()

	// Equal amounts: the quantity discount wins so the promo code stays
	// unredeemed for a later order.
	resolved := ResolveBestDiscount(10000, 2, &PromoDiscount{Code: "CART5-00AA11BB", Percentage: 5})
	if resolved.Type != DiscountTypeQuantity {
		t.Fatalf("type = %s, want quantity on tie", resolved.Type)
	}
}

func TestResolveBestDiscountNone(t *testing.T) {
	t.Parallel()

	resolved := ResolveBestDiscount(10000, 1, nil)
	if resolved.Type != DiscountTypeNone || resolved.AmountCents != 0 {
		t.Fatalf("expected no discount, got %+v", resolved)
	}
	if resolved.HelperMessage != "" {
		t.Fatalf("unexpected helper message %q", resolved.HelperMessage)
	}
}
