package recovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bannersonthefly/banners-backend/internal/discounts"
	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/email"
	"github.com/bannersonthefly/banners-backend/pkg/enums"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
	"github.com/bannersonthefly/banners-backend/pkg/metrics"
	"github.com/bannersonthefly/banners-backend/pkg/types"
)

// Service drives the abandoned-cart recovery funnel.
type Service interface {
	Touch(ctx context.Context, params TouchParams) (*TouchResult, error)
	HandleEmailEvent(ctx context.Context, params EmailEventParams) (*EmailEventResult, error)
	SendRecoveryEmail(ctx context.Context, cartID uuid.UUID, sequence int) (*SendResult, error)
	MarkRecovered(ctx context.Context, cartID, orderID uuid.UUID) error
	RecoverForOrder(ctx context.Context, userID *uuid.UUID, email string, orderID uuid.UUID) (bool, error)
	List(ctx context.Context, limit int) (*ListResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DiscountIssuer mints cart-linked discount codes for follow-up emails.
type DiscountIssuer interface {
	Generate(ctx context.Context, params discounts.GenerateParams) (*discounts.GenerateResult, error)
}

// TouchParams carry a cart activity snapshot from the storefront.
type TouchParams struct {
	UserID    *uuid.UUID
	SessionID *string
	Email     string
	Phone     *string
	Snapshot  types.CartSnapshot
}

// TouchResult reports the tracked cart row.
type TouchResult struct {
	CartID uuid.UUID            `json:"cartId"`
	Status enums.RecoveryStatus `json:"status"`
}

// EmailEventParams describe a provider engagement webhook event.
type EmailEventParams struct {
	CartID   uuid.UUID
	RawType  string
	Sequence *int
	EmailID  string
}

// EmailEventResult reports how the webhook event was handled.
type EmailEventResult struct {
	Tracked   bool                    `json:"tracked"`
	EventType enums.RecoveryEventType `json:"eventType,omitempty"`
	Engaged   bool                    `json:"engaged"`
}

// SendResult reports a dispatched recovery email.
type SendResult struct {
	EmailID      string `json:"emailId"`
	Sequence     int    `json:"sequenceNumber"`
	DiscountCode string `json:"discountCode,omitempty"`
}

// ListResult wraps the admin dashboard listing with funnel stats.
type ListResult struct {
	Carts []models.AbandonedCart `json:"carts"`
	Stats FunnelStats            `json:"stats"`
}

// ServiceParams wire the recovery service dependencies.
type ServiceParams struct {
	Logger    *logger.Logger
	Repo      Repository
	DB        txRunner
	Discounts DiscountIssuer
	Email     email.Sender
	Recovery  config.RecoveryConfig
	Site      config.EmailConfig
	Metrics   *metrics.RecoveryMetrics
	Now       func() time.Time
}

type service struct {
	logg      *logger.Logger
	repo      Repository
	db        txRunner
	discounts DiscountIssuer
	email     email.Sender
	cfg       config.RecoveryConfig
	site      config.EmailConfig
	metrics   *metrics.RecoveryMetrics
	now       func() time.Time
}

// NewService wires recovery funnel dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "recovery repository required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db runner required")
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
		email:     params.Email,
		cfg:       params.Recovery,
		site:      params.Site,
		metrics:   params.Metrics,
		now:       now,
	}, nil
}

// Touch upserts the activity snapshot for the shopper's active cart. A new
// row is created when no active cart exists for the identity.
func (s *service) Touch(ctx context.Context, params TouchParams) (*TouchResult, error) {
	if params.UserID == nil && (params.SessionID == nil || *params.SessionID == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "either userId or sessionId is required")
	}

	now := s.now().UTC()
	totalCents := 0
	for _, item := range params.Snapshot.Items {
		line := item.UnitPriceCents * item.Qty
		totalCents += line
	}
	if params.Snapshot.SubtotalCents > 0 {
		totalCents = params.Snapshot.SubtotalCents
	}

	existing, err := s.findActive(ctx, params)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up active cart")
	}

	if existing != nil {
		existing.Email = coalesce(params.Email, existing.Email)
		if params.Phone != nil {
			existing.Phone = params.Phone
		}
		existing.CartContents = params.Snapshot
		existing.TotalValueCents = totalCents
		if err := s.repo.UpdateSnapshot(ctx, existing, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart snapshot")
		}
		return &TouchResult{CartID: existing.ID, Status: existing.RecoveryStatus}, nil
	}

	cart := &models.AbandonedCart{
		UserID:          params.UserID,
		SessionID:       params.SessionID,
		Email:           params.Email,
		Phone:           params.Phone,
		CartContents:    params.Snapshot,
		TotalValueCents: totalCents,
		RecoveryStatus:  enums.RecoveryStatusActive,
		LastActivityAt:  now,
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart snapshot")
	}
	return &TouchResult{CartID: cart.ID, Status: cart.RecoveryStatus}, nil
}

func (s *service) findActive(ctx context.Context, params TouchParams) (*models.AbandonedCart, error) {
	if params.UserID != nil {
		return s.repo.FindActiveByUser(ctx, *params.UserID)
	}
	return s.repo.FindActiveBySession(ctx, *params.SessionID)
}

var emailEventTypes = map[string]enums.RecoveryEventType{
	"email.sent":      enums.RecoveryEventTypeEmailSent,
	"email.delivered": enums.RecoveryEventTypeEmailDelivered,
	"email.opened":    enums.RecoveryEventTypeEmailOpened,
	"email.clicked":   enums.RecoveryEventTypeEmailClicked,
	"email.bounced":   enums.RecoveryEventTypeEmailBounced,
}

// HandleEmailEvent ingests a provider engagement webhook. A click promotes the
// cart from abandoned to engaged and stops the follow-up sequence; unknown
// event types are acknowledged without tracking.
func (s *service) HandleEmailEvent(ctx context.Context, params EmailEventParams) (*EmailEventResult, error) {
	if params.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cartId is required")
	}
	eventType, ok := emailEventTypes[params.RawType]
	if !ok {
		return &EmailEventResult{Tracked: false}, nil
	}

	now := s.now().UTC()
	result := &EmailEventResult{Tracked: true, EventType: eventType}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		log := &models.CartRecoveryLog{
			AbandonedCartID:     params.CartID,
			EventType:           eventType,
			EmailSequenceNumber: params.Sequence,
			Metadata: types.JSONMap{
				"emailId":  params.EmailID,
				"rawEvent": params.RawType,
			},
		}
		if err := txRepo.AppendLog(ctx, log); err != nil {
			return err
		}
		if eventType == enums.RecoveryEventTypeEmailClicked {
			rows, err := txRepo.MarkEngaged(ctx, params.CartID, now)
			if err != nil {
				return err
			}
			result.Engaged = rows > 0
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record email event")
	}

	logCtx := s.logg.WithCartID(ctx, params.CartID.String())
	s.logg.Info(s.logg.WithField(logCtx, "event_type", string(eventType)), "email event recorded")
	return result, nil
}

// SendRecoveryEmail dispatches the numbered follow-up email for a cart.
// Emails 2 and 3 carry a cart-linked discount code (10% and 15%).
func (s *service) SendRecoveryEmail(ctx context.Context, cartID uuid.UUID, sequence int) (*SendResult, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cartId is required")
	}
	plan, err := planForSequence(sequence, s.cfg.DiscountExpiryHrs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sequence")
	}
	if s.email == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "email sender not configured")
	}

	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no email address")
	}

	discountCode := ""
	if cart.DiscountCode != nil {
		discountCode = *cart.DiscountCode
	}
	if plan.DiscountPercentage > 0 && discountCode == "" {
		if s.discounts == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "discount issuer not configured")
		}
		generated, err := s.discounts.Generate(ctx, discounts.GenerateParams{
			CartID:          cart.ID,
			Percentage:      plan.DiscountPercentage,
			ExpirationHours: plan.ExpirationHours,
		})
		if err != nil {
			return nil, err
		}
		discountCode = generated.Code
	}

	recoveryURL := fmt.Sprintf("%s/cart?cart=%s", s.site.SiteURL, cart.ID)
	if discountCode != "" {
		recoveryURL = fmt.Sprintf("%s/cart?discount=%s&cart=%s", s.site.SiteURL, discountCode, cart.ID)
	}

	html, err := renderRecoveryEmail(plan, cart.CartContents, cart.TotalValueCents, discountCode, recoveryURL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render recovery email")
	}

	emailID, err := s.email.Send(ctx, email.Message{
		From:    fmt.Sprintf("Banners On The Fly <%s>", s.site.FromAddress),
		To:      cart.Email,
		Subject: plan.Subject,
		HTML:    html,
		Tags: []email.Tag{
			{Name: "type", Value: "abandoned_cart"},
			{Name: "sequence", Value: strconv.Itoa(sequence)},
			{Name: "cart_id", Value: cart.ID.String()},
		},
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.RecordEmailSent(ctx, cart.ID, sequence, now); err != nil {
			return err
		}
		seq := sequence
		return txRepo.AppendLog(ctx, &models.CartRecoveryLog{
			AbandonedCartID:     cart.ID,
			EventType:           enums.RecoveryEventTypeEmailSent,
			EmailSequenceNumber: &seq,
			Metadata: types.JSONMap{
				"subject":      plan.Subject,
				"discountCode": discountCode,
				"emailId":      emailID,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record email sent")
	}

	if s.metrics != nil {
		s.metrics.IncEmailSent(sequence)
	}
	logCtx := s.logg.WithCartID(ctx, cart.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "sequence", sequence), "recovery email sent")

	return &SendResult{EmailID: emailID, Sequence: sequence, DiscountCode: discountCode}, nil
}

// MarkRecovered flags the cart recovered after order placement. Guarded so a
// recovered cart never reverts.
func (s *service) MarkRecovered(ctx context.Context, cartID, orderID uuid.UUID) error {
	if cartID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cartId and orderId are required")
	}
	now := s.now().UTC()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		rows, err := txRepo.MarkRecovered(ctx, cartID, orderID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		if s.metrics != nil {
			s.metrics.IncRecovered()
		}
		return txRepo.AppendLog(ctx, &models.CartRecoveryLog{
			AbandonedCartID: cartID,
			EventType:       enums.RecoveryEventTypeCartRecovered,
			Metadata:        types.JSONMap{"orderId": orderID.String()},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cart recovered")
	}
	return nil
}

// RecoverForOrder attributes a freshly placed order to the shopper's
// outstanding cart, matched by user id or email. Returns false when no
// recoverable cart exists.
func (s *service) RecoverForOrder(ctx context.Context, userID *uuid.UUID, email string, orderID uuid.UUID) (bool, error) {
	cart, err := s.repo.FindRecoverable(ctx, userID, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up recoverable cart")
	}
	if err := s.MarkRecovered(ctx, cart.ID, orderID); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the admin dashboard cart listing plus funnel stats.
func (s *service) List(ctx context.Context, limit int) (*ListResult, error) {
	carts, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list abandoned carts")
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate funnel stats")
	}
	return &ListResult{Carts: carts, Stats: *stats}, nil
}

func coalesce(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
