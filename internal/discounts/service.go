package discounts

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

	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/enums"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
	"github.com/bannersonthefly/banners-backend/pkg/metrics"
	"github.com/bannersonthefly/banners-backend/pkg/money"
	"github.com/bannersonthefly/banners-backend/pkg/types"
)

const (
	defaultPercentage      = 10
	defaultExpirationHours = 48

	msgInvalidCode = "Invalid discount code"
	msgAlreadyUsed = "This discount code has already been used"
	msgExpired     = "This discount code has expired"
)

// Service manages the discount code lifecycle.
type Service interface {
	Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error)
	Validate(ctx context.Context, code, email string) (*ValidationResult, error)
	Redeem(ctx context.Context, params RedeemParams) (*RedeemResult, error)
	SeedWeeklyPromo(ctx context.Context) (*models.DiscountCode, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GenerateParams configure abandoned-cart code generation.
type GenerateParams struct {
	CartID          uuid.UUID
	Percentage      int
	ExpirationHours int
}

// GenerateResult is the created (or reused) code.
type GenerateResult struct {
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discountPercentage"`
	ExpiresAt          time.Time `json:"expiresAt"`
	IsExisting         bool      `json:"isExisting"`
}

// ValidationResult reports whether a code can be applied. Business failures
// land in Valid/Message, never in an error.
type ValidationResult struct {
	Valid               bool       `json:"valid"`
	Code                string     `json:"code,omitempty"`
	DiscountPercentage  *int       `json:"discountPercentage,omitempty"`
	DiscountAmountCents *int       `json:"discountAmountCents,omitempty"`
	ExpiresAt           *time.Time `json:"expiresAt,omitempty"`
	Message             string     `json:"message"`
}

// RedeemParams bind a code to a placed order.
type RedeemParams struct {
	Code    string
	OrderID uuid.UUID
	UserID  *uuid.UUID
	Email   string
}

// RedeemResult echoes the consumed code.
type RedeemResult struct {
	Code                string `json:"code"`
	DiscountPercentage  *int   `json:"discountPercentage,omitempty"`
	DiscountAmountCents *int   `json:"discountAmountCents,omitempty"`
	CartRecovered       bool   `json:"cartRecovered"`
}

// ServiceParams wire the discounts service dependencies.
type ServiceParams struct {
	Logger  *logger.Logger
	Repo    Repository
	DB      txRunner
	Promo   config.PromoConfig
	Metrics *metrics.RecoveryMetrics
	Now     func() time.Time
}

type service struct {
	logg    *logger.Logger
	repo    Repository
	db      txRunner
	promo   config.PromoConfig
	metrics *metrics.RecoveryMetrics
	now     func() time.Time
}

// NewService wires discount lifecycle dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "discounts repository required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		logg:    params.Logger,
		repo:    params.Repo,
		db:      params.DB,
		promo:   params.Promo,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// Generate mints a CART{pct}-{8 hex} code for an abandoned cart. While the
// cart still holds a live unused code the same code is returned with
// IsExisting set instead of minting a duplicate.
func (s *service) Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	if params.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cartId is required")
	}
	percentage := params.Percentage
	if percentage == 0 {
		percentage = defaultPercentage
	}
	if percentage < 1 || percentage > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discountPercentage must be 1-100")
	}
	expirationHours := params.ExpirationHours
	if expirationHours <= 0 {
		expirationHours = defaultExpirationHours
	}

	cart, err := s.repo.FindCart(ctx, params.CartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	now := s.now().UTC()
	if cart.DiscountCode != nil && *cart.DiscountCode != "" {
		existing, err := s.repo.FindByCode(ctx, *cart.DiscountCode)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing code")
		}
		if existing != nil && !existing.Used && !existing.IsExpired(now) {
			return &GenerateResult{
				Code:               existing.Code,
				DiscountPercentage: derefInt(existing.DiscountPercentage),
				ExpiresAt:          derefTime(existing.ExpiresAt),
				IsExisting:         true,
			}, nil
		}
	}

	code, err := newCartCode(percentage)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint discount code")
	}
	expiresAt := now.Add(time.Duration(expirationHours) * time.Hour)
	record := &models.DiscountCode{
		Code:               code,
		DiscountPercentage: &percentage,
		CartID:             &params.CartID,
		SingleUse:          true,
		ExpiresAt:          &expiresAt,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, record); err != nil {
			return err
		}
		return txRepo.LinkCartCode(ctx, params.CartID, code, now)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist discount code")
	}

	logCtx := s.logg.WithDiscountCode(ctx, code)
	s.logg.Info(s.logg.WithCartID(logCtx, params.CartID.String()), "discount code generated")

	return &GenerateResult{
		Code:               code,
		DiscountPercentage: percentage,
		ExpiresAt:          expiresAt,
		IsExisting:         false,
	}, nil
}

// Validate checks a code without consuming it. Unknown codes get the same
// generic message as malformed ones so the endpoint gives no guessing feedback.
func (s *service) Validate(ctx context.Context, code, email string) (*ValidationResult, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}

	record, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationResult{Valid: false, Message: msgInvalidCode}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up discount code")
	}

	if record.Used {
		return &ValidationResult{Valid: false, Message: msgAlreadyUsed}, nil
	}
	if record.IsExpired(s.now().UTC()) {
		return &ValidationResult{Valid: false, Message: msgExpired}, nil
	}
	if record.MaxUsesPerCustomer > 0 && email != "" && record.UsedByCustomer(strings.ToLower(strings.TrimSpace(email))) {
		return &ValidationResult{Valid: false, Message: msgAlreadyUsed}, nil
	}

	return &ValidationResult{
		Valid:               true,
		Code:                record.Code,
		DiscountPercentage:  record.DiscountPercentage,
		DiscountAmountCents: record.DiscountAmountCents,
		ExpiresAt:           record.ExpiresAt,
		Message:             successMessage(record),
	}, nil
}

// Redeem consumes a code for a placed order. Cart-linked codes flip `used`
// via a conditional UPDATE; a lost race surfaces as ALREADY_USED. Promo codes
// without a cart append the customer email instead. The owning abandoned cart
// is marked recovered in the same transaction.
func (s *service) Redeem(ctx context.Context, params RedeemParams) (*RedeemResult, error) {
	normalized := NormalizeCode(params.Code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	if params.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}

	record, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordRedemption("not_found")
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgInvalidCode)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up discount code")
	}

	now := s.now().UTC()
	if record.IsExpired(now) {
		s.recordRedemption("expired")
		return nil, pkgerrors.New(pkgerrors.CodeExpired, msgExpired)
	}

	result := &RedeemResult{
		Code:                record.Code,
		DiscountPercentage:  record.DiscountPercentage,
		DiscountAmountCents: record.DiscountAmountCents,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if record.CartID == nil && record.MaxUsesPerCustomer > 0 {
			email := strings.ToLower(strings.TrimSpace(params.Email))
			if email == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "email is required for this code")
			}
			rows, err := txRepo.RedeemPerCustomer(ctx, normalized, email, params.OrderID, now)
			if err != nil {
				return err
			}
			if rows == 0 {
				return pkgerrors.New(pkgerrors.CodeAlreadyUsed, msgAlreadyUsed)
			}
			return nil
		}

		redeemed, err := txRepo.RedeemSingleUse(ctx, normalized, params.OrderID, params.UserID, now)
		if err != nil {
			return err
		}
		if redeemed == nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyUsed, msgAlreadyUsed)
		}

		if redeemed.CartID != nil {
			rows, err := txRepo.MarkCartRecovered(ctx, *redeemed.CartID, params.OrderID, now)
			if err != nil {
				return err
			}
			if rows > 0 {
				result.CartRecovered = true
				if s.metrics != nil {
					s.metrics.IncRecovered()
				}
			}
			return txRepo.AppendRecoveryLog(ctx, &models.CartRecoveryLog{
				AbandonedCartID: *redeemed.CartID,
				EventType:       enums.RecoveryEventTypeCartRecovered,
				Metadata: types.JSONMap{
					"orderId":      params.OrderID.String(),
					"discountCode": normalized,
				},
			})
		}
		return nil
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil {
			s.recordRedemption(strings.ToLower(string(coded.Code())))
			return nil, err
		}
		s.recordRedemption("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem discount code")
	}

	s.recordRedemption("success")
	s.logg.Info(s.logg.WithDiscountCode(ctx, normalized), "discount code redeemed")
	return result, nil
}

// SeedWeeklyPromo upserts the weekly promo code with its expiry pushed to the
// end of the current week (Saturday 23:59:59.999).
func (s *service) SeedWeeklyPromo(ctx context.Context) (*models.DiscountCode, error) {
	code := s.promo.WeeklyCode
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weekly promo code not configured")
	}
	percentage := s.promo.WeeklyPercentage
	if percentage <= 0 || percentage > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weekly promo percentage must be 1-100")
	}

	now := s.now()
	expiresAt := EndOfWeek(now)

	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up weekly promo")
	}
	if existing != nil {
		if _, err := s.repo.RefreshExpiry(ctx, code, expiresAt, now.UTC()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh weekly promo expiry")
		}
		existing.ExpiresAt = &expiresAt
		s.logg.Info(s.logg.WithDiscountCode(ctx, code), "weekly promo expiry refreshed")
		return existing, nil
	}

	// Per-customer, not single-use: redemption appends to used_by_email
	// and never flips the used flag.
	record := &models.DiscountCode{
		Code:               code,
		DiscountPercentage: &percentage,
		SingleUse:          false,
		MaxUsesPerCustomer: 1,
		ExpiresAt:          &expiresAt,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create weekly promo")
	}
	s.logg.Info(s.logg.WithDiscountCode(ctx, code), "weekly promo created")
	return record, nil
}

func (s *service) recordRedemption(outcome string) {
	if s.metrics != nil {
		s.metrics.IncRedemption(outcome)
	}
}

// NormalizeCode trims and uppercases raw user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EndOfWeek returns Saturday 23:59:59.999 of the week containing now, in
// now's location. A reseed inside the final millisecond of Saturday rolls
// to next week's Saturday so the promo never seeds already expired.
func EndOfWeek(now time.Time) time.Time {
	daysUntilSaturday := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
	saturday := now.AddDate(0, 0, daysUntilSaturday)
	end := time.Date(saturday.Year(), saturday.Month(), saturday.Day(), 23, 59, 59, int(999*time.Millisecond), saturday.Location())
	if !end.After(now) {
		end = end.AddDate(0, 0, 7)
	}
	return end
}

func newCartCode(percentage int) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("CART%d-%s", percentage, strings.ToUpper(hex.EncodeToString(buf))), nil
}

func successMessage(record *models.DiscountCode) string {
	if record.DiscountPercentage != nil {
		return fmt.Sprintf("%d%% off your order", *record.DiscountPercentage)
	}
	if record.DiscountAmountCents != nil {
		return fmt.Sprintf("%s off your order", money.Format(*record.DiscountAmountCents))
	}
	return ""
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefTime(v *time.Time) time.Time {
	if v == nil {
		return time.Time{}
	}
	return *v
}
