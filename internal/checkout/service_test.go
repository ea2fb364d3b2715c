package checkout

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/internal/cart"
	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
)

var testShipping = ShippingDetails{
	FullName: "Sara Adel",
	Phone:    "+201001234567",
	Address:  "12 Tahrir St",
	City:     "Cairo",
}

func TestCheckoutSnapshotsCartAndAppliesFee(t *testing.T) {
	t.Parallel()

	product := &models.Product{ID: uuid.New(), Name: "Tee", Price: decimal.NewFromInt(150), Stock: 10, IsActive: true}
	userID := uuid.New()
	cartRepo := &stubCheckoutCartRepo{
		cart: &models.Cart{ID: uuid.New(), UserID: &userID},
		items: []models.CartItem{
			{ID: uuid.New(), ProductID: product.ID, Quantity: 2, Product: product},
		},
	}
	repo := newStubCheckoutRepo()
	svc := newTestCheckoutService(t, repo, cartRepo)

	view, err := svc.Checkout(context.Background(), CheckoutInput{
		Owner:    cart.Owner{UserID: &userID},
		Shipping: testShipping,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !view.Subtotal.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected subtotal 300, got %s", view.Subtotal)
	}
	if !view.DeliveryFee.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected delivery fee 50, got %s", view.DeliveryFee)
	}
	if !view.Total.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected total 350, got %s", view.Total)
	}
	if view.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", view.Status)
	}
	if !strings.HasPrefix(view.OrderNumber, "ORD-") || len(view.OrderNumber) != 12 {
		t.Fatalf("unexpected order number format: %q", view.OrderNumber)
	}

	if len(repo.items) != 1 {
		t.Fatalf("expected 1 order item, got %d", len(repo.items))
	}
	item := repo.items[0]
	if item.ProductName != "Tee" || !item.UnitPrice.Equal(decimal.NewFromInt(150)) || item.Quantity != 2 {
		t.Fatalf("unexpected item snapshot: %+v", item)
	}
	if len(repo.timeline) != 1 || repo.timeline[0].Status != enums.OrderStatusPending {
		t.Fatalf("expected a pending timeline entry, got %+v", repo.timeline)
	}
	if !cartRepo.cleared {
		t.Fatal("expected the cart to be cleared after checkout")
	}
}

func TestCheckoutWaivesFeeAtThreshold(t *testing.T) {
	t.Parallel()

	product := &models.Product{ID: uuid.New(), Name: "Jacket", Price: decimal.NewFromInt(250), Stock: 10, IsActive: true}
	userID := uuid.New()
	cartRepo := &stubCheckoutCartRepo{
		cart: &models.Cart{ID: uuid.New(), UserID: &userID},
		items: []models.CartItem{
			{ID: uuid.New(), ProductID: product.ID, Quantity: 2, Product: product},
		},
	}
	svc := newTestCheckoutService(t, newStubCheckoutRepo(), cartRepo)

	view, err := svc.Checkout(context.Background(), CheckoutInput{
		Owner:    cart.Owner{UserID: &userID},
		Shipping: testShipping,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.DeliveryFee.IsZero() {
		t.Fatalf("expected waived fee at threshold, got %s", view.DeliveryFee)
	}
	if !view.Total.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected total 500, got %s", view.Total)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	cartRepo := &stubCheckoutCartRepo{cart: &models.Cart{ID: uuid.New(), UserID: &userID}}
	svc := newTestCheckoutService(t, newStubCheckoutRepo(), cartRepo)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		Owner:    cart.Owner{UserID: &userID},
		Shipping: testShipping,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}
}

func TestCheckoutMissingShippingFields(t *testing.T) {
	t.Parallel()

	svc := newTestCheckoutService(t, newStubCheckoutRepo(), &stubCheckoutCartRepo{})

	_, err := svc.Checkout(context.Background(), CheckoutInput{Shipping: ShippingDetails{FullName: "Sara"}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDirectBuyInsufficientStock(t *testing.T) {
	t.Parallel()

	product := &models.Product{ID: uuid.New(), Name: "Tee", Price: decimal.NewFromInt(100), Stock: 1, IsActive: true}
	cartRepo := &stubCheckoutCartRepo{product: product}
	svc := newTestCheckoutService(t, newStubCheckoutRepo(), cartRepo)

	_, err := svc.DirectBuy(context.Background(), DirectBuyInput{
		Owner:     cart.Owner{SessionKey: "sk"},
		ProductID: product.ID,
		Quantity:  3,
		Shipping:  testShipping,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrderRetriesOnNumberCollision(t *testing.T) {
	t.Parallel()

	product := &models.Product{ID: uuid.New(), Name: "Tee", Price: decimal.NewFromInt(100), Stock: 10, IsActive: true}
	cartRepo := &stubCheckoutCartRepo{product: product}
	repo := newStubCheckoutRepo()
	repo.existsResults = []bool{true, true, false}
	svc := newTestCheckoutService(t, repo, cartRepo)

	view, err := svc.DirectBuy(context.Background(), DirectBuyInput{
		Owner:     cart.Owner{SessionKey: "sk"},
		ProductID: product.ID,
		Quantity:  1,
		Shipping:  testShipping,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.existsCalls != 3 {
		t.Fatalf("expected 3 uniqueness checks, got %d", repo.existsCalls)
	}
	if view.OrderNumber == "" {
		t.Fatal("expected an order number after retries")
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		number, err := NewOrderNumber()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(number, "ORD-") || len(number) != 12 {
			t.Fatalf("unexpected format: %q", number)
		}
		for _, r := range number[4:] {
			if !strings.ContainsRune(orderNumberCharset, r) {
				t.Fatalf("unexpected character %q in %q", r, number)
			}
		}
		seen[number] = true
	}
	if len(seen) < 2 {
		t.Fatal("expected distinct order numbers")
	}
}

func newTestCheckoutService(t *testing.T, repo Repository, cartRepo cart.Repository) Service {
	t.Helper()
	policy := FeePolicy{Fee: decimal.NewFromInt(50), FreeThreshold: decimal.NewFromInt(500)}
	svc, err := NewService(repo, cartRepo, stubTxRunner{}, policy, "EGP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCheckoutRepo struct {
	orders   []*models.Order
	items    []models.OrderItem
	timeline []*models.OrderTimeline

	existsResults []bool
	existsCalls   int
}

func newStubCheckoutRepo() *stubCheckoutRepo {
	return &stubCheckoutRepo{}
}

func (s *stubCheckoutRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCheckoutRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.orders = append(s.orders, order)
	return order, nil
}

func (s *stubCheckoutRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	s.items = append(s.items, items...)
	return nil
}

func (s *stubCheckoutRepo) CreateTimelineEntry(ctx context.Context, entry *models.OrderTimeline) error {
	s.timeline = append(s.timeline, entry)
	return nil
}

func (s *stubCheckoutRepo) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	s.existsCalls++
	if len(s.existsResults) == 0 {
		return false, nil
	}
	result := s.existsResults[0]
	s.existsResults = s.existsResults[1:]
	return result, nil
}

// stubCheckoutCartRepo serves only the cart.Repository methods checkout
// touches; everything else panics to surface unexpected calls.
type stubCheckoutCartRepo struct {
	cart    *models.Cart
	items   []models.CartItem
	product *models.Product
	cleared bool
}

func (s *stubCheckoutCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *stubCheckoutCartRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if s.cart == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCheckoutCartRepo) FindBySessionKey(ctx context.Context, sessionKey string) (*models.Cart, error) {
	if s.cart == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCheckoutCartRepo) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	panic("unexpected Create")
}

func (s *stubCheckoutCartRepo) Delete(ctx context.Context, cartID uuid.UUID) error {
	panic("unexpected Delete")
}

func (s *stubCheckoutCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID, colorID *uuid.UUID) (*models.CartItem, error) {
	panic("unexpected FindItem")
}

func (s *stubCheckoutCartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	return s.items, nil
}

func (s *stubCheckoutCartRepo) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	panic("unexpected CreateItem")
}

func (s *stubCheckoutCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	panic("unexpected UpdateItemQuantity")
}

func (s *stubCheckoutCartRepo) MoveItem(ctx context.Context, itemID, targetCartID uuid.UUID) error {
	panic("unexpected MoveItem")
}

func (s *stubCheckoutCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	panic("unexpected DeleteItem")
}

func (s *stubCheckoutCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	s.cleared = true
	return nil
}

func (s *stubCheckoutCartRepo) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if s.product == nil || s.product.ID != productID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.product, nil
}

func (s *stubCheckoutCartRepo) FindColor(ctx context.Context, colorID uuid.UUID) (*models.ProductColor, error) {
	return nil, gorm.ErrRecordNotFound
}
