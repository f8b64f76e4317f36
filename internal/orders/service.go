package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bannersonthefly/banners-backend/internal/discounts"
	"github.com/bannersonthefly/banners-backend/pkg/checkout"
	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/enums"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
	"github.com/bannersonthefly/banners-backend/pkg/pricing"
	"github.com/bannersonthefly/banners-backend/pkg/types"
)

// Service creates and manages placed banner orders.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus) error
	SetTracking(ctx context.Context, id uuid.UUID, trackingNumber string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// discountVerifier is the slice of the discounts service orders need.
type discountVerifier interface {
	Validate(ctx context.Context, code, email string) (*discounts.ValidationResult, error)
	Redeem(ctx context.Context, params discounts.RedeemParams) (*discounts.RedeemResult, error)
}

// cartRecoverer attributes placed orders to outstanding abandoned carts.
type cartRecoverer interface {
	RecoverForOrder(ctx context.Context, userID *uuid.UUID, email string, orderID uuid.UUID) (bool, error)
}

// CreateItemInput is one banner line on an incoming order.
type CreateItemInput struct {
	SKU            string               `json:"sku" validate:"required"`
	Title          string               `json:"title" validate:"required"`
	WidthIn        float64              `json:"widthIn" validate:"gte=0"`
	HeightIn       float64              `json:"heightIn" validate:"gte=0"`
	Qty            int                  `json:"qty" validate:"required,gt=0"`
	UnitPriceCents int                  `json:"unitPriceCents" validate:"gte=0"`
	Options        []pricing.CartOption `json:"options"`
}

// CreateInput is the order creation payload. ExpectedTotalCents is the
// client-side total; the service recomputes and rejects a mismatch.
type CreateInput struct {
	Email              string            `json:"email" validate:"required,email"`
	UserID             *uuid.UUID        `json:"userId"`
	Items              []CreateItemInput `json:"items" validate:"required,min=1,dive"`
	DiscountCode       string            `json:"discountCode"`
	ExpectedTotalCents *int              `json:"expectedTotalCents"`
	Checkout           checkout.Context  `json:"-"`
}

// CreateResult is the created order plus the pricing breakdown that
// produced it.
type CreateResult struct {
	Order         *models.Order              `json:"order"`
	Totals        pricing.CartTotals         `json:"totals"`
	Discount      pricing.ResolvedDiscount   `json:"discount"`
	CartRecovered bool                       `json:"cartRecovered"`
	SizeWarnings  []checkout.SizeLimitResult `json:"sizeWarnings,omitempty"`
}

// ServiceParams wire the order service dependencies.
type ServiceParams struct {
	Logger    *logger.Logger
	Repo      Repository
	DB        txRunner
	Discounts discountVerifier
	Recovery  cartRecoverer
	Checkout  config.CheckoutConfig
	Now       func() time.Time
}

type service struct {
	logg      *logger.Logger
	repo      Repository
	db        txRunner
	discounts discountVerifier
	recovery  cartRecoverer
	cfg       config.CheckoutConfig
	now       func() time.Time
}

// NewService wires order creation and lifecycle dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order repository required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db runner required")
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
		repo:      params.Repo,
		db:        params.DB,
		discounts: params.Discounts,
		recovery:  params.Recovery,
		cfg:       params.Checkout,
		now:       now,
	}, nil
}

// Create prices the cart server-side, gates it on the minimum-order
// floor, redeems the winning promo code with the order insert, and
// attributes the order to any outstanding abandoned cart.
func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
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

	cart := s.buildCart(input.Items)
	base := pricing.ComputeTotals(cart)

	totalQty := 0
	for _, item := range input.Items {
		totalQty += item.Qty
	}

	var promo *pricing.PromoDiscount
	if code := strings.TrimSpace(input.DiscountCode); code != "" {
		validation, err := s.discounts.Validate(ctx, code, email)
		if err != nil {
			return nil, err
		}
		if !validation.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, validation.Message)
		}
		promo = &pricing.PromoDiscount{Code: validation.Code}
		if validation.DiscountPercentage != nil {
			promo.Percentage = *validation.DiscountPercentage
		}
		if validation.DiscountAmountCents != nil {
			promo.AmountCents = *validation.DiscountAmountCents
		}
	}

	resolved := pricing.ResolveBestDiscount(base.SubtotalCents, totalQty, promo)
	cart.DiscountsCents = pricing.CapDiscount(resolved.AmountCents, base.SubtotalCents)
	totals := pricing.ComputeTotals(cart)

	var sizeWarnings []checkout.SizeLimitResult
	for _, item := range input.Items {
		if item.WidthIn <= 0 || item.HeightIn <= 0 {
			continue
		}
		if result := checkout.ValidateSizeLimit(item.WidthIn, item.HeightIn); !result.WithinLimit {
			sizeWarnings = append(sizeWarnings, result)
		}
	}

	minimum := checkout.ValidateMinimumOrder(totals.TotalCents, input.Checkout)
	if !minimum.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeMinimumNotMet, minimum.Message).
			WithDetails(map[string]any{
				"currentTotal":    minimum.Details.TotalCents,
				"minimumRequired": minimum.Details.MinimumRequired,
				"shortfall":       minimum.Details.ShortfallCents,
				"suggestions":     checkout.MinimumOrderSuggestions(),
			})
	}

	if input.ExpectedTotalCents != nil && *input.ExpectedTotalCents != totals.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total does not match the server-side computation").
			WithDetails(map[string]any{
				"expectedTotalCents": *input.ExpectedTotalCents,
				"computedTotalCents": totals.TotalCents,
			})
	}

	now := s.now().UTC()
	orderNumber, err := newOrderNumber(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint order number")
	}
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    orderNumber,
		Email:          email,
		UserID:         input.UserID,
		Status:         enums.OrderStatusPaid,
		SubtotalCents:  totals.SubtotalCents,
		DiscountsCents: totals.DiscountsCents,
		TaxCents:       totals.TaxCents,
		ShippingCents:  totals.ShippingCents,
		TotalCents:     totals.TotalCents,
		Items:          buildOrderItems(input.Items, totals),
	}
	promoApplied := resolved.Type == pricing.DiscountTypePromo
	if promoApplied {
		order.DiscountCode = &resolved.PromoCode
	}

	cartRecovered := false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if promoApplied {
			redeemed, err := s.discounts.Redeem(ctx, discounts.RedeemParams{
				Code:    resolved.PromoCode,
				OrderID: order.ID,
				UserID:  input.UserID,
				Email:   email,
			})
			if err != nil {
				return err
			}
			cartRecovered = redeemed.CartRecovered
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !cartRecovered && s.recovery != nil {
		recovered, err := s.recovery.RecoverForOrder(ctx, input.UserID, email, order.ID)
		if err != nil {
			// Attribution is best-effort; the order itself stands.
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "attribute order to abandoned cart", err)
		} else {
			cartRecovered = recovered
		}
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "total_cents", totals.TotalCents), "order created")

	return &CreateResult{
		Order:         order,
		Totals:        totals,
		Discount:      resolved,
		CartRecovered: cartRecovered,
		SizeWarnings:  sizeWarnings,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.repo.FindByOrderNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListByEmail(ctx context.Context, email string, limit int) ([]models.Order, error) {
	orders, err := s.repo.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// UpdateStatus advances the order lifecycle with a guarded transition.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus) error {
	if !next.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", next))
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !order.Status.CanTransitionTo(next) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
	}
	rows, err := s.repo.UpdateStatus(ctx, id, order.Status, next, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	return nil
}

func (s *service) SetTracking(ctx context.Context, id uuid.UUID, trackingNumber string) error {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetTracking(ctx, id, trackingNumber, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set tracking number")
	}
	return nil
}

func (s *service) buildCart(items []CreateItemInput) pricing.Cart {
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

func buildOrderItems(items []CreateItemInput, totals pricing.CartTotals) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for i, item := range items {
		options := make(types.OptionsList, 0, len(item.Options))
		for _, option := range item.Options {
			options = append(options, types.SnapshotOption{
				ID:              option.ID,
				Name:            option.Name,
				PriceCents:      option.PriceCents,
				PricingMode:     option.Mode.String(),
				QuantityPerItem: option.QuantityPerItem,
			})
		}
		lineTotal := 0
		if i < len(totals.ItemTotals) {
			lineTotal = totals.ItemTotals[i].LineTotalCents
		}
		out = append(out, models.OrderItem{
			SKU:            item.SKU,
			Title:          item.Title,
			WidthIn:        item.WidthIn,
			HeightIn:       item.HeightIn,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			Options:        options,
			LineTotalCents: lineTotal,
		})
	}
	return out
}

// newOrderNumber mints a human-referenceable order number: date plus a
// random hex suffix.
func newOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("BOF-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(buf))), nil
}
