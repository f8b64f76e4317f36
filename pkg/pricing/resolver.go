package pricing

import (
	"fmt"

	"github.com/bannersonthefly/banners-backend/pkg/money"
)

// DiscountType identifies which discount won the resolution.
type DiscountType string

const (
	DiscountTypeQuantity DiscountType = "quantity"
	DiscountTypePromo    DiscountType = "promo"
	DiscountTypeNone     DiscountType = "none"
)

// PromoDiscount is a validated promo code as input to the resolver.
// Exactly one of Percentage or AmountCents is set.
type PromoDiscount struct {
	Code        string
	Percentage  int
	AmountCents int
}

// ResolvedDiscount is the outcome of best-discount-wins resolution.
// Discounts never stack; only the winning one is applied.
type ResolvedDiscount struct {
	Type        DiscountType `json:"appliedDiscountType"`
	Label       string       `json:"appliedDiscountLabel"`
	AmountCents int          `json:"appliedDiscountAmountCents"`
	Rate        float64      `json:"appliedDiscountRate"`

	QuantityAvailable   bool `json:"quantityDiscountAvailable"`
	QuantityAmountCents int  `json:"quantityDiscountAmountCents"`

	PromoAvailable   bool   `json:"promoDiscountAvailable"`
	PromoAmountCents int    `json:"promoDiscountAmountCents"`
	PromoCode        string `json:"promoDiscountCode,omitempty"`

	HelperMessage string `json:"helperMessage,omitempty"`
}

// ResolveBestDiscount picks the larger of the quantity discount and the
// promo discount for the given subtotal. A fixed-amount promo is capped
// at the subtotal.
func ResolveBestDiscount(subtotalCents, qty int, promo *PromoDiscount) ResolvedDiscount {
	quantityRate := QuantityDiscountRate(qty)
	quantityCents := money.Round(float64(subtotalCents) * quantityRate)

	var promoCents int
	var promoRate float64
	var promoCode string
	if promo != nil {
		promoCode = promo.Code
		switch {
		case promo.Percentage > 0:
			promoRate = float64(promo.Percentage) / 100
			promoCents = money.Round(float64(subtotalCents) * promoRate)
		case promo.AmountCents > 0:
			promoCents = promo.AmountCents
			if promoCents > subtotalCents {
				promoCents = subtotalCents
			}
			if subtotalCents > 0 {
				promoRate = float64(promoCents) / float64(subtotalCents)
			}
		}
	}

	resolved := ResolvedDiscount{
		Type:                DiscountTypeNone,
		QuantityAvailable:   quantityCents > 0,
		QuantityAmountCents: quantityCents,
		PromoAvailable:      promoCents > 0,
		PromoAmountCents:    promoCents,
		PromoCode:           promoCode,
	}

	applyQuantity := func() {
		resolved.Type = DiscountTypeQuantity
		resolved.Label = fmt.Sprintf("Quantity discount (%d%% off)", money.Round(quantityRate*100))
		resolved.AmountCents = quantityCents
		resolved.Rate = quantityRate
	}
	applyPromo := func() {
		resolved.Type = DiscountTypePromo
		resolved.Label = fmt.Sprintf("%s (%s)", promoCode, promoLabel(promo, promoCents))
		resolved.AmountCents = promoCents
		resolved.Rate = promoRate
	}

	switch {
	case resolved.QuantityAvailable && resolved.PromoAvailable:
		if quantityCents >= promoCents {
			applyQuantity()
		} else {
			applyPromo()
		}
		resolved.HelperMessage = "Discounts can't be combined; we applied the best one."
	case resolved.QuantityAvailable:
		applyQuantity()
	case resolved.PromoAvailable:
		applyPromo()
	}

	return resolved
}

func promoLabel(promo *PromoDiscount, promoCents int) string {
	if promo != nil && promo.Percentage > 0 {
		return fmt.Sprintf("%d%% off", promo.Percentage)
	}
	return fmt.Sprintf("%s off", money.Format(promoCents))
}
