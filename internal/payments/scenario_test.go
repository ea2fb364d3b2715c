package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/internal/cart"
	"github.com/rafal-store/rafal-backend/internal/checkout"
	"github.com/rafal-store/rafal-backend/internal/providers"
	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
)

// TestCartToProcessingScenario walks the whole purchase path: a cart worth
// 600 EGP checks out with free delivery, a kiosk payment is initiated, and
// the provider callback flips the order to processing exactly once.
func TestCartToProcessingScenario(t *testing.T) {
	t.Parallel()

	repo := newMemPaymentsRepo()
	userID := uuid.New()
	cartRepo := newScenarioCartRepo(userID, decimal.NewFromInt(300), 2)

	checkoutSvc, err := checkout.NewService(
		&scenarioCheckoutRepo{payments: repo},
		cartRepo,
		stubTxRunner{},
		checkout.FeePolicy{Fee: decimal.NewFromInt(50), FreeThreshold: decimal.NewFromInt(500)},
		"EGP",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := checkoutSvc.Checkout(context.Background(), checkout.CheckoutInput{
		Owner: cart.Owner{UserID: &userID},
		Shipping: checkout.ShippingDetails{
			FullName: "Sara Adel",
			Phone:    "+201001234567",
			Address:  "12 Tahrir St",
			City:     "Cairo",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.Subtotal.Equal(decimal.NewFromInt(600)) || !view.DeliveryFee.IsZero() || !view.Total.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("unexpected totals: %+v", view)
	}
	if !cartRepo.cleared {
		t.Fatal("checkout must clear the cart")
	}

	adapter := &stubAdapter{tx: &providers.Transaction{
		ProviderRef: "FRN-SC1",
		PaymentCode: "FRN-SC1",
		ExpiresAt:   time.Now().Add(72 * time.Hour),
	}}
	paymentsSvc := newTestPaymentsService(t, repo, map[enums.PaymentProvider]providers.Adapter{
		enums.PaymentProviderFawry: adapter,
	})

	initiation, err := paymentsSvc.Initiate(context.Background(), userID, view.ID, enums.PaymentProviderFawry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if initiation.PaymentCode != "FRN-SC1" {
		t.Fatalf("unexpected payment code: %q", initiation.PaymentCode)
	}

	// Callback delivery.
	result, err := paymentsSvc.Reconcile(context.Background(), ReconcileInput{
		Provider:      enums.PaymentProviderFawry,
		Reference:     "FRN-SC1",
		Success:       true,
		TransactionID: "tx-sc1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}

	order := repo.orders[view.ID]
	if order.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing order, got %s", order.Status)
	}
	if len(repo.payments) != 1 || !repo.payments[0].Amount.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected one 600 EGP payment, got %+v", repo.payments)
	}

	// The polling path delivering the same verdict is a no-op.
	replay, err := paymentsSvc.Reconcile(context.Background(), ReconcileInput{
		Provider:  enums.PaymentProviderFawry,
		Reference: "FRN-SC1",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replay.Outcome != OutcomeAlreadyProcessed {
		t.Fatalf("expected already processed, got %s", replay.Outcome)
	}
	if len(repo.payments) != 1 {
		t.Fatalf("replay must not add payments, got %d", len(repo.payments))
	}
}

// scenarioCheckoutRepo lands checkout writes in the shared payments repo so
// the payment half of the scenario sees the freshly cut order.
type scenarioCheckoutRepo struct {
	payments *memPaymentsRepo
}

func (s *scenarioCheckoutRepo) WithTx(tx *gorm.DB) checkout.Repository { return s }

func (s *scenarioCheckoutRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.payments.orders[order.ID] = order
	return order, nil
}

func (s *scenarioCheckoutRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return nil
}

func (s *scenarioCheckoutRepo) CreateTimelineEntry(ctx context.Context, entry *models.OrderTimeline) error {
	s.payments.timeline = append(s.payments.timeline, entry)
	return nil
}

func (s *scenarioCheckoutRepo) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	for _, order := range s.payments.orders {
		if order.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

type scenarioCartRepo struct {
	ownedCart *models.Cart
	items     []models.CartItem
	cleared   bool
}

func newScenarioCartRepo(userID uuid.UUID, unitPrice decimal.Decimal, quantity int) *scenarioCartRepo {
	ownedCart := &models.Cart{ID: uuid.New(), UserID: &userID}
	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Hoodie",
		Slug:     "hoodie",
		Price:    unitPrice,
		Stock:    10,
		IsActive: true,
	}
	return &scenarioCartRepo{
		ownedCart: ownedCart,
		items: []models.CartItem{{
			ID:        uuid.New(),
			CartID:    ownedCart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			Product:   product,
		}},
	}
}

func (s *scenarioCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *scenarioCartRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if s.ownedCart.UserID != nil && *s.ownedCart.UserID == userID {
		return s.ownedCart, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *scenarioCartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	if s.cleared {
		return nil, nil
	}
	return s.items, nil
}

func (s *scenarioCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	s.cleared = true
	return nil
}

func (s *scenarioCartRepo) FindBySessionKey(ctx context.Context, sessionKey string) (*models.Cart, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *scenarioCartRepo) Create(ctx context.Context, c *models.Cart) (*models.Cart, error) {
	panic("unexpected Create")
}

func (s *scenarioCartRepo) Delete(ctx context.Context, cartID uuid.UUID) error {
	panic("unexpected Delete")
}

func (s *scenarioCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID, colorID *uuid.UUID) (*models.CartItem, error) {
	panic("unexpected FindItem")
}

func (s *scenarioCartRepo) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	panic("unexpected CreateItem")
}

func (s *scenarioCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	panic("unexpected UpdateItemQuantity")
}

func (s *scenarioCartRepo) MoveItem(ctx context.Context, itemID, targetCartID uuid.UUID) error {
	panic("unexpected MoveItem")
}

func (s *scenarioCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	panic("unexpected DeleteItem")
}

func (s *scenarioCartRepo) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	panic("unexpected FindProduct")
}

func (s *scenarioCartRepo) FindColor(ctx context.Context, colorID uuid.UUID) (*models.ProductColor, error) {
	panic("unexpected FindColor")
}
