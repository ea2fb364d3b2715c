package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	"github.com/rafal-store/rafal-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  email TEXT,
  address TEXT NOT NULL,
  city TEXT NOT NULL,
  notes TEXT,
  subtotal NUMERIC NOT NULL,
  delivery_fee NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  payment_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  product_name TEXT NOT NULL,
  color_name TEXT,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME
);`
	orderTimelines := `
CREATE TABLE IF NOT EXISTS order_timelines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  note TEXT,
  created_at DATETIME
);`
	for _, stmt := range []string{orders, orderItems, orderTimelines} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, number string, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		UserID:      &userID,
		Status:      enums.OrderStatusPending,
		FullName:    "Sara Adel",
		Phone:       "+201001234567",
		Address:     "12 Tahrir St",
		City:        "Cairo",
		Subtotal:    decimal.NewFromInt(300),
		DeliveryFee: decimal.NewFromInt(50),
		Total:       decimal.NewFromInt(350),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryFindByIDPreloadsItemsAndTimeline(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	order := seedOrder(t, db, uuid.New(), "ORD-AAAA0001", base)

	productID := uuid.New()
	require.NoError(t, db.Create(&models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductID:   &productID,
		ProductName: "Tee",
		UnitPrice:   decimal.NewFromInt(150),
		Quantity:    2,
	}).Error)
	require.NoError(t, repo.CreateTimelineEntry(ctx, &models.OrderTimeline{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.OrderStatusPending,
		Note:      "order created",
		CreatedAt: base,
	}))
	require.NoError(t, repo.CreateTimelineEntry(ctx, &models.OrderTimeline{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.OrderStatusProcessing,
		Note:      "payment received via fawry",
		CreatedAt: base.Add(time.Hour),
	}))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Tee", found.Items[0].ProductName)
	require.Len(t, found.Timeline, 2)
	assert.Equal(t, enums.OrderStatusPending, found.Timeline[0].Status)
	assert.Equal(t, enums.OrderStatusProcessing, found.Timeline[1].Status)
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, db, userID, fmt.Sprintf("ORD-AAAA000%d", i+1), base.Add(time.Duration(i)*time.Hour))
	}
	// Another user's order must never leak into the page.
	seedOrder(t, db, uuid.New(), "ORD-BBBB0001", base)

	page, cursor, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "ORD-AAAA0003", page[0].OrderNumber)
	assert.Equal(t, "ORD-AAAA0002", page[1].OrderNumber)
	require.NotEmpty(t, cursor)

	rest, next, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "ORD-AAAA0001", rest[0].OrderNumber)
	assert.Empty(t, next)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "ORD-AAAA0001", time.Now().UTC())
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, found.Status)
}
