package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bannersonthefly/banners-backend/pkg/db/models"
	"github.com/bannersonthefly/banners-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  user_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal_cents INTEGER NOT NULL DEFAULT 0,
  discounts_cents INTEGER NOT NULL DEFAULT 0,
  discount_code TEXT,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL DEFAULT 0,
  tracking_number TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  title TEXT NOT NULL,
  width_in REAL NOT NULL DEFAULT 0,
  height_in REAL NOT NULL DEFAULT 0,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  options TEXT,
  line_total_cents INTEGER NOT NULL
);`
	for _, stmt := range []string{orders, orderItems} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestOrder(orderNumber string) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   orderNumber,
		Email:         "shopper@example.com",
		Status:        enums.OrderStatusPaid,
		SubtotalCents: 9000,
		TaxCents:      540,
		TotalCents:    9540,
		Items: []models.OrderItem{
			{
				ID:             uuid.New(),
				SKU:            "BAN-VINYL",
				Title:          "Vinyl Banner 3x6",
				WidthIn:        72,
				HeightIn:       36,
				Qty:            2,
				UnitPriceCents: 4500,
				LineTotalCents: 9000,
			},
		},
	}
}

func TestOrderRepoCreateAndFind(t *testing.T) {
	t.Parallel()
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newTestOrder("BOF-20260304-AABBCCDD")
	require.NoError(t, repo.Create(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.OrderNumber, found.OrderNumber)
	require.Len(t, found.Items, 1)
	require.Equal(t, "BAN-VINYL", found.Items[0].SKU)

	byNumber, err := repo.FindByOrderNumber(ctx, "BOF-20260304-AABBCCDD")
	require.NoError(t, err)
	require.Equal(t, order.ID, byNumber.ID)
}

func TestOrderRepoUpdateStatusIsGuarded(t *testing.T) {
	t.Parallel()
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	order := newTestOrder("BOF-20260304-11223344")
	require.NoError(t, repo.Create(ctx, order))

	rows, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid, enums.OrderStatusInProd, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	// Stale from-state loses the race.
	rows, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid, enums.OrderStatusInProd, now)
	require.NoError(t, err)
	require.EqualValues(t, 0, rows)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusInProd, found.Status)
}

func TestOrderRepoListByEmail(t *testing.T) {
	t.Parallel()
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := newTestOrder("BOF-20260304-00000001")
	second := newTestOrder("BOF-20260304-00000002")
	other := newTestOrder("BOF-20260304-00000003")
	other.Email = "someone-else@example.com"
	for _, order := range []*models.Order{first, second, other} {
		require.NoError(t, repo.Create(ctx, order))
	}

	found, err := repo.ListByEmail(ctx, "shopper@example.com", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
}
