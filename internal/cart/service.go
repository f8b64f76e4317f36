package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bannersonthefly/banners-backend/internal/discounts"
	"github.com/bannersonthefly/banners-backend/internal/recovery"
	"github.com/bannersonthefly/banners-backend/pkg/checkout"
	"github.com/bannersonthefly/banners-backend/pkg/config"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
	"github.com/bannersonthefly/banners-backend/pkg/pricing"
	"github.com/bannersonthefly/banners-backend/pkg/types"
)

// Service prices carts for the storefront without touching order state.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error)
}

// discountValidator is the slice of the discounts service quotes need.
type discountValidator interface {
	Validate(ctx context.Context, code, email string) (*discounts.ValidationResult, error)
}

// cartToucher records storefront cart activity for abandonment detection.
type cartToucher interface {
	Touch(ctx context.Context, params recovery.TouchParams) (*recovery.TouchResult, error)
}

// ItemInput is one banner line in a quote request.
type ItemInput struct {
	SKU            string               `json:"sku"`
	Title          string               `json:"title"`
	WidthIn        float64              `json:"widthIn" validate:"gte=0"`
	HeightIn       float64              `json:"heightIn" validate:"gte=0"`
	Qty            int                  `json:"qty" validate:"required,gt=0"`
	UnitPriceCents int                  `json:"unitPriceCents" validate:"gte=0"`
	Options        []pricing.CartOption `json:"options"`
}

// QuoteInput is the storefront quote payload. Identity fields are optional;
// when present the quote doubles as a cart-activity ping for recovery.
type QuoteInput struct {
	Items        []ItemInput `json:"items" validate:"required,min=1,dive"`
	DiscountCode string      `json:"discountCode"`
	Email        string      `json:"email" validate:"omitempty,email"`
	UserID       *uuid.UUID  `json:"userId"`
	SessionID    *string     `json:"sessionId"`
	Phone        *string     `json:"phone"`
}

// QuoteResult is the full pricing breakdown for a cart. Business outcomes
// that merely inform the shopper (bad code, minimum not reached, oversize
// banner) are fields here, not errors.
type QuoteResult struct {
	Totals          pricing.CartTotals         `json:"totals"`
	Discount        pricing.ResolvedDiscount   `json:"discount"`
	DiscountMessage string                     `json:"discountMessage,omitempty"`
	MeetsMinimum    bool                       `json:"meetsMinimum"`
	ShortfallCents  int                        `json:"shortfallCents,omitempty"`
	Suggestions     []string                   `json:"suggestions,omitempty"`
	SizeWarnings    []checkout.SizeLimitResult `json:"sizeWarnings,omitempty"`
	TrackedCartID   *uuid.UUID                 `json:"trackedCartId,omitempty"`
}

// ServiceParams wire the quote service dependencies.
type ServiceParams struct {
	Logger    *logger.Logger
	Discounts discountValidator
	Recovery  cartToucher
	Checkout  config.CheckoutConfig
	Now       func() time.Time
}

type service struct {
	logg      *logger.Logger
	discounts discountValidator
	recovery  cartToucher
	cfg       config.CheckoutConfig
	now       func() time.Time
}

// NewService wires cart quoting.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Discounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "discounts service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		logg:      params.Logger,
		discounts: params.Discounts,
		recovery:  params.Recovery,
		cfg:       params.Checkout,
		now:       now,
	}, nil
}

// Quote prices the cart server-side: best-discount resolution, minimum-order
// advisory, and size-limit warnings in a single response.
func (s *service) Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one item")
	}
	for i, item := range input.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if item.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("item %d: unit price must not be negative", i))
		}
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	cart := s.buildCart(input.Items)
	base := pricing.ComputeTotals(cart)

	totalQty := 0
	for _, item := range input.Items {
		totalQty += item.Qty
	}

	result := &QuoteResult{}

	var promo *pricing.PromoDiscount
	if code := strings.TrimSpace(input.DiscountCode); code != "" {
		validation, err := s.discounts.Validate(ctx, code, email)
		if err != nil {
			return nil, err
		}
		if validation.Valid {
			promo = &pricing.PromoDiscount{Code: validation.Code}
			if validation.DiscountPercentage != nil {
				promo.Percentage = *validation.DiscountPercentage
			}
			if validation.DiscountAmountCents != nil {
				promo.AmountCents = *validation.DiscountAmountCents
			}
		} else {
			// A bad code never blocks the quote; the shopper just sees why.
			result.DiscountMessage = validation.Message
		}
	}

	resolved := pricing.ResolveBestDiscount(base.SubtotalCents, totalQty, promo)
	cart.DiscountsCents = pricing.CapDiscount(resolved.AmountCents, base.SubtotalCents)
	totals := pricing.ComputeTotals(cart)

	result.Totals = totals
	result.Discount = resolved

	for _, item := range input.Items {
		if item.WidthIn <= 0 || item.HeightIn <= 0 {
			continue
		}
		if check := checkout.ValidateSizeLimit(item.WidthIn, item.HeightIn); !check.WithinLimit {
			result.SizeWarnings = append(result.SizeWarnings, check)
		}
	}

	minimum := checkout.ValidateMinimumOrder(totals.TotalCents, checkout.Context{IsTestMode: s.cfg.TestMode})
	result.MeetsMinimum = minimum.Valid
	if !minimum.Valid {
		result.ShortfallCents = minimum.Details.ShortfallCents
		result.Suggestions = checkout.MinimumOrderSuggestions()
	}

	s.touchRecovery(ctx, input, totals, result)

	return result, nil
}

// touchRecovery records the quote as cart activity when the shopper is
// identifiable. Failures are logged, never surfaced.
func (s *service) touchRecovery(ctx context.Context, input QuoteInput, totals pricing.CartTotals, result *QuoteResult) {
	if s.recovery == nil {
		return
	}
	if input.UserID == nil && input.SessionID == nil {
		return
	}

	touched, err := s.recovery.Touch(ctx, recovery.TouchParams{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     input.Phone,
		Snapshot:  buildSnapshot(input.Items, totals),
	})
	if err != nil {
		s.logg.Error(ctx, "track cart activity", err)
		return
	}
	result.TrackedCartID = &touched.CartID
}

func (s *service) buildCart(items []ItemInput) pricing.Cart {
	cartItems := make([]pricing.CartItem, 0, len(items))
	for i, item := range items {
		cartItems = append(cartItems, pricing.CartItem{
			ID:             fmt.Sprintf("item-%d", i),
			SKU:            item.SKU,
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			Options:        item.Options,
		})
	}
	shipping := s.cfg.DefaultShippingCents
	if s.cfg.FreeShipping {
		shipping = 0
	}
	return pricing.Cart{
		Items:         cartItems,
		ShippingCents: shipping,
		TaxRatePct:    s.cfg.TaxRatePct,
	}
}

func buildSnapshot(items []ItemInput, totals pricing.CartTotals) types.CartSnapshot {
	out := types.CartSnapshot{
		ShippingCents: totals.ShippingCents,
		SubtotalCents: totals.SubtotalCents,
	}
	for i, item := range items {
		options := make([]types.SnapshotOption, 0, len(item.Options))
		for _, option := range item.Options {
			options = append(options, types.SnapshotOption{
				ID:              option.ID,
				Name:            option.Name,
				PriceCents:      option.PriceCents,
				PricingMode:     option.Mode.String(),
				QuantityPerItem: option.QuantityPerItem,
			})
		}
		out.Items = append(out.Items, types.SnapshotItem{
			ID:             fmt.Sprintf("item-%d", i),
			SKU:            item.SKU,
			Title:          item.Title,
			WidthIn:        item.WidthIn,
			HeightIn:       item.HeightIn,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			Options:        options,
		})
	}
	return out
}
