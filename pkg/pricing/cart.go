package pricing

// CartOption is a pricing modifier attached to a cart item, e.g. grommets
// or pole pockets on a banner.
//
// QuantityPerItem is a pointer so an absent field and an explicit zero
// stay distinct: absent defaults to 1, an explicit 0 prices the option
// to nothing.
type CartOption struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	PriceCents      int         `json:"priceCents"`
	Mode            PricingMode `json:"pricingMode"`
	QuantityPerItem *int        `json:"quantityPerItem,omitempty"`
}

// CartItem is a single banner line in the cart.
type CartItem struct {
	ID             string       `json:"id"`
	SKU            string       `json:"sku"`
	Title          string       `json:"title"`
	UnitPriceCents int          `json:"unitPriceCents"`
	Qty            int          `json:"qty"`
	Options        []CartOption `json:"options"`
}

// Cart is the input to the totals computation. It is never mutated;
// every pricing call produces a fresh CartTotals snapshot.
type Cart struct {
	Items          []CartItem `json:"items"`
	ShippingCents  int        `json:"shippingCents"`
	TaxRatePct     float64    `json:"taxRatePct"`
	DiscountsCents int        `json:"discountsCents,omitempty"`
}

// ItemTotal is the computed breakdown for one cart line.
type ItemTotal struct {
	ItemID               string `json:"itemId"`
	UnitEachCents        int    `json:"unitEachCents"`
	LineTotalCents       int    `json:"lineTotalCents"`
	PerItemOptionsCents  int    `json:"perItemOptionsCents"`
	PerOrderOptionsCents int    `json:"perOrderOptionsCents"`
}

// CartTotals is the read-only result of ComputeTotals. All monetary
// fields are integer cents.
type CartTotals struct {
	ItemTotals                  []ItemTotal `json:"itemTotals"`
	SubtotalCents               int         `json:"subtotalCents"`
	DiscountsCents              int         `json:"discountsCents"`
	SubtotalAfterDiscountsCents int         `json:"subtotalAfterDiscountsCents"`
	TaxCents                    int         `json:"taxCents"`
	ShippingCents               int         `json:"shippingCents"`
	TotalCents                  int         `json:"totalCents"`
}
