package discounts

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	pkgerrors "github.com/bannersonthefly/banners-backend/pkg/errors"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
)

var cartCodeRe = regexp.MustCompile(`^CART15-[0-9A-F]{8}$`)

func TestGenerateMintsCartCode(t *testing.T) {
	t.Parallel()
	cartID := uuid.New()
	repo := &stubRepo{
		carts: map[uuid.UUID]*models.AbandonedCart{
			cartID: {ID: cartID, Email: "shopper@example.com"},
		},
	}
	svc := newTestService(t, repo, time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))

	result, err := svc.Generate(context.Background(), GenerateParams{
		CartID:          cartID,
		Percentage:      15,
		ExpirationHours: 48,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.IsExisting {
		t.Fatal("expected fresh code")
	}
	if !cartCodeRe.MatchString(result.Code) {
		t.Fatalf("unexpected code format %q", result.Code)
	}
	want := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)
	if !result.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, result.ExpiresAt)
	}
	if repo.linkedCode != result.Code {
		t.Fatalf("expected code linked onto cart, got %q", repo.linkedCode)
	}
}

func TestGenerateIsIdempotentWhileCodeLive(t *testing.T) {
	t.Parallel()
	cartID := uuid.New()
	pct := 10
	expires := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	existing := "CART10-AABBCCDD"
	repo := &stubRepo{
		carts: map[uuid.UUID]*models.AbandonedCart{
			cartID: {ID: cartID, DiscountCode: &existing},
		},
		codes: map[string]*models.DiscountCode{
			existing: {Code: existing, DiscountPercentage: &pct, ExpiresAt: &expires},
		},
	}
	svc := newTestService(t, repo, time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))

	result, err := svc.Generate(context.Background(), GenerateParams{CartID: cartID, Percentage: 10})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !result.IsExisting {
		t.Fatal("expected existing code to be returned")
	}
	if result.Code != existing {
		t.Fatalf("expected %q, got %q", existing, result.Code)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no new code, created %d", len(repo.created))
	}
}

func TestGenerateReplacesUsedCode(t *testing.T) {
	t.Parallel()
	cartID := uuid.New()
	pct := 10
	existing := "CART10-AABBCCDD"
	repo := &stubRepo{
		carts: map[uuid.UUID]*models.AbandonedCart{
			cartID: {ID: cartID, DiscountCode: &existing},
		},
		codes: map[string]*models.DiscountCode{
			existing: {Code: existing, DiscountPercentage: &pct, Used: true},
		},
	}
	svc := newTestService(t, repo, time.Now())

	result, err := svc.Generate(context.Background(), GenerateParams{CartID: cartID})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.IsExisting {
		t.Fatal("used code must not be reused")
	}
	if result.Code == existing {
		t.Fatal("expected a fresh code")
	}
}

func TestGenerateRejectsBadPercentage(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, &stubRepo{}, time.Now())
	_, err := svc.Generate(context.Background(), GenerateParams{CartID: uuid.New(), Percentage: 101})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateUnknownCodeIsGeneric(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, &stubRepo{}, time.Now())

	result, err := svc.Validate(context.Background(), "  nope ", "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Message != "Invalid discount code" {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestValidateRejectsUsedAndExpired(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	pct := 10
	repo := &stubRepo{codes: map[string]*models.DiscountCode{
		"USED10": {Code: "USED10", DiscountPercentage: &pct, Used: true},
		"LATE10": {Code: "LATE10", DiscountPercentage: &pct, ExpiresAt: &past},
	}}
	svc := newTestService(t, repo, now)

	used, err := svc.Validate(context.Background(), "used10", "")
	if err != nil {
		t.Fatalf("Validate used: %v", err)
	}
	if used.Valid || used.Message != "This discount code has already been used" {
		t.Fatalf("unexpected used result %+v", used)
	}

	expired, err := svc.Validate(context.Background(), "LATE10", "")
	if err != nil {
		t.Fatalf("Validate expired: %v", err)
	}
	if expired.Valid || expired.Message != "This discount code has expired" {
		t.Fatalf("unexpected expired result %+v", expired)
	}
}

func TestValidateRejectsRepeatCustomerOnPromo(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	pct := 20
	repo := &stubRepo{codes: map[string]*models.DiscountCode{
		"WEEK20": {
			Code:               "WEEK20",
			DiscountPercentage: &pct,
			MaxUsesPerCustomer: 1,
			UsedByEmail:        []string{"repeat@example.com"},
			ExpiresAt:          &future,
		},
	}}
	svc := newTestService(t, repo, now)

	result, err := svc.Validate(context.Background(), "week20", "Repeat@Example.com")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Fatal("repeat customer must be rejected")
	}
	if result.Message != "This discount code has already been used" {
		t.Fatalf("unexpected message %q", result.Message)
	}

	fresh, err := svc.Validate(context.Background(), "WEEK20", "new@example.com")
	if err != nil {
		t.Fatalf("Validate fresh: %v", err)
	}
	if !fresh.Valid {
		t.Fatalf("fresh customer should pass: %+v", fresh)
	}
	if fresh.Message != "20% off your order" {
		t.Fatalf("unexpected success message %q", fresh.Message)
	}
}

func TestValidateAmountMessage(t *testing.T) {
	t.Parallel()
	amount := 1550
	repo := &stubRepo{codes: map[string]*models.DiscountCode{
		"SAVE15": {Code: "SAVE15", DiscountAmountCents: &amount},
	}}
	svc := newTestService(t, repo, time.Now())

	result, err := svc.Validate(context.Background(), "SAVE15", "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid || result.Message != "$15.50 off your order" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRedeemMarksCartRecovered(t *testing.T) {
	t.Parallel()
	cartID := uuid.New()
	pct := 10
	repo := &stubRepo{codes: map[string]*models.DiscountCode{
		"CART10-AABBCCDD": {Code: "CART10-AABBCCDD", DiscountPercentage: &pct, CartID: &cartID},
	}}
	svc := newTestService(t, repo, time.Now())

	result, err := svc.Redeem(context.Background(), RedeemParams{
		Code:    "cart10-aabbccdd",
		OrderID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !result.CartRecovered {
		t.Fatal("expected cart recovered")
	}
	if repo.recoveredCart != cartID {
		t.Fatalf("expected cart %s recovered, got %s", cartID, repo.recoveredCart)
	}
	if len(repo.logs) != 1 {
		t.Fatalf("expected one recovery log, got %d", len(repo.logs))
	}
}

func TestRedeemRaceLossIsAlreadyUsed(t *testing.T) {
	t.Parallel()
	pct := 10
	repo := &stubRepo{
		codes:      map[string]*models.DiscountCode{"CART10-AABBCCDD": {Code: "CART10-AABBCCDD", DiscountPercentage: &pct}},
		redeemRace: true,
	}
	svc := newTestService(t, repo, time.Now())

	_, err := svc.Redeem(context.Background(), RedeemParams{Code: "CART10-AABBCCDD", OrderID: uuid.New()})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeAlreadyUsed {
		t.Fatalf("expected ALREADY_USED, got %v", err)
	}
}

func TestRedeemPerCustomerPromo(t *testing.T) {
	t.Parallel()
	pct := 20
	repo := &stubRepo{codes: map[string]*models.DiscountCode{
		"WEEK20": {Code: "WEEK20", DiscountPercentage: &pct, MaxUsesPerCustomer: 1},
	}}
	svc := newTestService(t, repo, time.Now())

	if _, err := svc.Redeem(context.Background(), RedeemParams{Code: "WEEK20", OrderID: uuid.New()}); err == nil {
		t.Fatal("promo redemption without email must fail")
	}

	if _, err := svc.Redeem(context.Background(), RedeemParams{
		Code:    "WEEK20",
		OrderID: uuid.New(),
		Email:   "Shopper@Example.com",
	}); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if repo.perCustomerEmail != "shopper@example.com" {
		t.Fatalf("expected lowercased email, got %q", repo.perCustomerEmail)
	}

	repo.perCustomerTaken = true
	_, err := svc.Redeem(context.Background(), RedeemParams{
		Code:    "WEEK20",
		OrderID: uuid.New(),
		Email:   "shopper@example.com",
	})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeAlreadyUsed {
		t.Fatalf("expected ALREADY_USED for repeat email, got %v", err)
	}
}

func TestSeedWeeklyPromoCreatesAndRefreshes(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) // Wednesday
	repo := &stubRepo{}
	svc := newTestService(t, repo, now)

	created, err := svc.SeedWeeklyPromo(context.Background())
	if err != nil {
		t.Fatalf("SeedWeeklyPromo: %v", err)
	}
	if created.Code != "WEEK20" || derefInt(created.DiscountPercentage) != 20 {
		t.Fatalf("unexpected promo %+v", created)
	}
	wantExpiry := time.Date(2026, 3, 7, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !created.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected Saturday expiry %s, got %s", wantExpiry, *created.ExpiresAt)
	}
	if created.MaxUsesPerCustomer != 1 {
		t.Fatalf("expected once-per-customer, got %d", created.MaxUsesPerCustomer)
	}
	if created.SingleUse {
		t.Fatalf("per-customer promo must not be flagged single-use")
	}

	refreshed, err := svc.SeedWeeklyPromo(context.Background())
	if err != nil {
		t.Fatalf("SeedWeeklyPromo refresh: %v", err)
	}
	if !refreshed.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected refreshed expiry %s, got %s", wantExpiry, *refreshed.ExpiresAt)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected a single promo row, created %d", len(repo.created))
	}
}

func TestEndOfWeekOnSaturday(t *testing.T) {
	t.Parallel()
	saturday := time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC)
	got := EndOfWeek(saturday)
	want := time.Date(2026, 3, 7, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestEndOfWeekRollsOverInFinalMillisecond(t *testing.T) {
	t.Parallel()
	lastInstant := time.Date(2026, 3, 7, 23, 59, 59, int(999500*time.Microsecond), time.UTC)
	got := EndOfWeek(lastInstant)
	want := time.Date(2026, 3, 14, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected next Saturday %s, got %s", want, got)
	}
}

func newTestService(t *testing.T, repo *stubRepo, now time.Time) Service {
	t.Helper()
	if repo.codes == nil {
		repo.codes = map[string]*models.DiscountCode{}
	}
	if repo.carts == nil {
		repo.carts = map[uuid.UUID]*models.AbandonedCart{}
	}
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Repo:   repo,
		DB:     fakeTxRunner{},
		Promo:  config.PromoConfig{WeeklyCode: "WEEK20", WeeklyPercentage: 20},
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	codes map[string]*models.DiscountCode
	carts map[uuid.UUID]*models.AbandonedCart

	created          []*models.DiscountCode
	linkedCode       string
	recoveredCart    uuid.UUID
	logs             []*models.CartRecoveryLog
	redeemRace       bool
	perCustomerTaken bool
	perCustomerEmail string
	refreshed        int
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, code *models.DiscountCode) error {
	s.created = append(s.created, code)
	s.codes[code.Code] = code
	return nil
}

func (s *stubRepo) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	record, ok := s.codes[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (s *stubRepo) FindCart(ctx context.Context, cartID uuid.UUID) (*models.AbandonedCart, error) {
	cart, ok := s.carts[cartID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cart, nil
}

func (s *stubRepo) LinkCartCode(ctx context.Context, cartID uuid.UUID, code string, now time.Time) error {
	s.linkedCode = code
	return nil
}

func (s *stubRepo) RefreshExpiry(ctx context.Context, code string, expiresAt, now time.Time) (int64, error) {
	s.refreshed++
	if record, ok := s.codes[code]; ok {
		expiry := expiresAt
		record.ExpiresAt = &expiry
	}
	return 1, nil
}

func (s *stubRepo) RedeemSingleUse(ctx context.Context, code string, orderID uuid.UUID, userID *uuid.UUID, now time.Time) (*models.DiscountCode, error) {
	if s.redeemRace {
		return nil, nil
	}
	record, ok := s.codes[code]
	if !ok || record.Used {
		return nil, nil
	}
	record.Used = true
	record.UsedAt = &now
	record.OrderID = &orderID
	return record, nil
}

func (s *stubRepo) RedeemPerCustomer(ctx context.Context, code, email string, orderID uuid.UUID, now time.Time) (int64, error) {
	s.perCustomerEmail = email
	if s.perCustomerTaken {
		return 0, nil
	}
	return 1, nil
}

func (s *stubRepo) MarkCartRecovered(ctx context.Context, cartID, orderID uuid.UUID, now time.Time) (int64, error) {
	s.recoveredCart = cartID
	return 1, nil
}

func (s *stubRepo) AppendRecoveryLog(ctx context.Context, log *models.CartRecoveryLog) error {
	s.logs = append(s.logs, log)
	return nil
}
