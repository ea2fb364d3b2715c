package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/pkg/db/models"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
)

func TestAddItemSameLineMergesQuantity(t *testing.T) {
	t.Parallel()

	repo := newMemCartRepo()
	product := repo.seedProduct("tee", 10, decimal.NewFromInt(100))
	svc := newTestService(t, repo)

	userID := uuid.New()
	owner := Owner{UserID: &userID}

	first, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Items) != 1 || first.Items[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", first.Items)
	}

	second, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Items) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(second.Items))
	}
	if second.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5 after merge, got %d", second.Items[0].Quantity)
	}
	if !second.Subtotal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected subtotal 500, got %s", second.Subtotal)
	}
}

func TestAddItemInsufficientStock(t *testing.T) {
	t.Parallel()

	repo := newMemCartRepo()
	product := repo.seedProduct("tee", 1, decimal.NewFromInt(100))
	svc := newTestService(t, repo)

	_, err := svc.AddItem(context.Background(), Owner{SessionKey: "sk"}, AddItemInput{ProductID: product.ID, Quantity: 2})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetOrCreateMintsSessionKey(t *testing.T) {
	t.Parallel()

	repo := newMemCartRepo()
	svc := newTestService(t, repo)

	summary, err := svc.GetOrCreate(context.Background(), Owner{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.SessionKey == "" {
		t.Fatal("expected a minted session key for anonymous owner")
	}

	// Same key must resolve to the same cart without minting again.
	again, err := svc.GetOrCreate(context.Background(), Owner{SessionKey: summary.SessionKey})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.CartID != summary.CartID {
		t.Fatal("expected the same cart for the minted key")
	}
	if again.SessionKey != "" {
		t.Fatal("expected no new key when the cart already exists")
	}
}

func TestMergeCombinesAndReplayIsNoop(t *testing.T) {
	t.Parallel()

	repo := newMemCartRepo()
	shared := repo.seedProduct("tee", 100, decimal.NewFromInt(100))
	extra := repo.seedProduct("cap", 100, decimal.NewFromInt(40))
	svc := newTestService(t, repo)

	userID := uuid.New()
	owner := Owner{UserID: &userID}
	anon := Owner{SessionKey: "guest-key"}

	if _, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: shared.ID, Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), anon, AddItemInput{ProductID: shared.ID, Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), anon, AddItemInput{ProductID: extra.ID, Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	merged, err := svc.Merge(context.Background(), userID, "guest-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Items) != 2 {
		t.Fatalf("expected 2 lines after merge, got %d", len(merged.Items))
	}
	for _, item := range merged.Items {
		switch item.ProductID {
		case shared.ID:
			if item.Quantity != 3 {
				t.Fatalf("expected combined quantity 3, got %d", item.Quantity)
			}
		case extra.ID:
			if item.Quantity != 1 {
				t.Fatalf("expected moved quantity 1, got %d", item.Quantity)
			}
		}
	}

	// The anonymous cart is gone; replaying the merge changes nothing.
	replay, err := svc.Merge(context.Background(), userID, "guest-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replay.Items) != 2 {
		t.Fatalf("expected replay to keep 2 lines, got %d", len(replay.Items))
	}
	for _, item := range replay.Items {
		if item.ProductID == shared.ID && item.Quantity != 3 {
			t.Fatalf("expected quantity 3 after replay, got %d", item.Quantity)
		}
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()

	repo := newMemCartRepo()
	product := repo.seedProduct("tee", 10, decimal.NewFromInt(100))
	svc := newTestService(t, repo)

	summary, err := svc.AddItem(context.Background(), Owner{SessionKey: "sk"}, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.UpdateQuantity(context.Background(), Owner{SessionKey: "sk"}, summary.Items[0].ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(updated.Items))
	}
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memCartRepo struct {
	carts    map[uuid.UUID]*models.Cart
	items    map[uuid.UUID]*models.CartItem
	products map[uuid.UUID]*models.Product
	colors   map[uuid.UUID]*models.ProductColor
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{
		carts:    map[uuid.UUID]*models.Cart{},
		items:    map[uuid.UUID]*models.CartItem{},
		products: map[uuid.UUID]*models.Product{},
		colors:   map[uuid.UUID]*models.ProductColor{},
	}
}

func (m *memCartRepo) seedProduct(name string, stock int, price decimal.Decimal) *models.Product {
	product := &models.Product{ID: uuid.New(), Name: name, Slug: name, Price: price, Stock: stock, IsActive: true}
	m.products[product.ID] = product
	return product
}

func (m *memCartRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memCartRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	for _, c := range m.carts {
		if c.UserID != nil && *c.UserID == userID {
			return m.withItems(c), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCartRepo) FindBySessionKey(ctx context.Context, sessionKey string) (*models.Cart, error) {
	for _, c := range m.carts {
		if c.SessionKey != nil && *c.SessionKey == sessionKey {
			return m.withItems(c), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// withItems mirrors the repository's Items preload.
func (m *memCartRepo) withItems(cart *models.Cart) *models.Cart {
	copied := *cart
	copied.Items = nil
	for _, item := range m.items {
		if item.CartID == cart.ID {
			copied.Items = append(copied.Items, *item)
		}
	}
	return &copied
}

func (m *memCartRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	m.carts[cart.ID] = cart
	return cart, nil
}

func (m *memCartRepo) Delete(ctx context.Context, cartID uuid.UUID) error {
	delete(m.carts, cartID)
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *memCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID, colorID *uuid.UUID) (*models.CartItem, error) {
	for _, item := range m.items {
		if item.CartID != cartID || item.ProductID != productID {
			continue
		}
		if (item.ColorID == nil) != (colorID == nil) {
			continue
		}
		if item.ColorID != nil && *item.ColorID != *colorID {
			continue
		}
		return item, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range m.items {
		if item.CartID != cartID {
			continue
		}
		copied := *item
		if p, ok := m.products[item.ProductID]; ok {
			copied.Product = p
		}
		if item.ColorID != nil {
			if c, ok := m.colors[*item.ColorID]; ok {
				copied.Color = c
			}
		}
		out = append(out, copied)
	}
	return out, nil
}

func (m *memCartRepo) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	m.items[item.ID] = item
	return item, nil
}

func (m *memCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	item, ok := m.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *memCartRepo) MoveItem(ctx context.Context, itemID, targetCartID uuid.UUID) error {
	item, ok := m.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.CartID = targetCartID
	return nil
}

func (m *memCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	delete(m.items, itemID)
	return nil
}

func (m *memCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *memCartRepo) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if p, ok := m.products[productID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCartRepo) FindColor(ctx context.Context, colorID uuid.UUID) (*models.ProductColor, error) {
	if c, ok := m.colors[colorID]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}
