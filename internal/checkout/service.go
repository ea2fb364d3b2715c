package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rafal-store/rafal-backend/internal/cart"
	"github.com/rafal-store/rafal-backend/pkg/db"
	"github.com/rafal-store/rafal-backend/pkg/db/models"
	"github.com/rafal-store/rafal-backend/pkg/enums"
	pkgerrors "github.com/rafal-store/rafal-backend/pkg/errors"
)

const orderNumberAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns carts (or single products) into orders.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*OrderView, error)
	DirectBuy(ctx context.Context, input DirectBuyInput) (*OrderView, error)
}

type service struct {
	repo     Repository
	cartRepo cart.Repository
	tx       txRunner
	policy   FeePolicy
	currency string
}

// NewService builds a checkout service with the required dependencies.
func NewService(repo Repository, cartRepo cart.Repository, tx txRunner, policy FeePolicy, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if policy.Fee.IsNegative() || policy.FreeThreshold.IsNegative() {
		return nil, fmt.Errorf("fee policy must not be negative")
	}
	if currency == "" {
		currency = "EGP"
	}
	return &service{
		repo:     repo,
		cartRepo: cartRepo,
		tx:       tx,
		policy:   policy,
		currency: currency,
	}, nil
}

// orderLine is an internal snapshot of one sellable line before persisting.
type orderLine struct {
	productID   uuid.UUID
	productName string
	colorName   string
	unitPrice   decimal.Decimal
	quantity    int
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*OrderView, error) {
	if err := validateShipping(input.Shipping); err != nil {
		return nil, err
	}

	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		ownedCart, err := findOwnerCart(ctx, cartRepo, input.Owner)
		if err != nil {
			return err
		}

		items, err := cartRepo.ListItems(ctx, ownedCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		lines := make([]orderLine, 0, len(items))
		for _, item := range items {
			if item.Product == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart references a missing product")
			}
			line := orderLine{
				productID:   item.ProductID,
				productName: item.Product.Name,
				unitPrice:   item.Product.Price,
				quantity:    item.Quantity,
			}
			if item.Color != nil {
				line.colorName = item.Color.Name
			}
			lines = append(lines, line)
		}

		order, err := s.createOrder(ctx, repo, input.Owner.UserID, input.Shipping, lines)
		if err != nil {
			return err
		}

		if err := cartRepo.DeleteItems(ctx, ownedCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		view = newOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) DirectBuy(ctx context.Context, input DirectBuyInput) (*OrderView, error) {
	if err := validateShipping(input.Shipping); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		product, err := cartRepo.FindProduct(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
		}

		line := orderLine{
			productID:   product.ID,
			productName: product.Name,
			unitPrice:   product.Price,
			quantity:    input.Quantity,
		}

		if input.ColorID != nil {
			color, err := cartRepo.FindColor(ctx, *input.ColorID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "color not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load color")
			}
			if color.ProductID != product.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "color does not belong to product")
			}
			if !color.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "color is not available")
			}
			if color.Stock < input.Quantity {
				return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock for color")
			}
			line.colorName = color.Name
		} else if product.Stock < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock")
		}

		order, err := s.createOrder(ctx, repo, input.Owner.UserID, input.Shipping, []orderLine{line})
		if err != nil {
			return err
		}

		view = newOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) createOrder(ctx context.Context, repo Repository, userID *uuid.UUID, shipping ShippingDetails, lines []orderLine) (*models.Order, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.unitPrice.Mul(decimal.NewFromInt(int64(line.quantity))))
	}
	fee := s.policy.DeliveryFee(subtotal)
	total := subtotal.Add(fee)

	var order *models.Order
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := NewOrderNumber()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		exists, err := repo.OrderNumberExists(ctx, number)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		}
		if exists {
			continue
		}

		candidate := &models.Order{
			ID:          uuid.New(),
			OrderNumber: number,
			UserID:      userID,
			Status:      enums.OrderStatusPending,
			FullName:    shipping.FullName,
			Phone:       shipping.Phone,
			Email:       shipping.Email,
			Address:     shipping.Address,
			City:        shipping.City,
			Notes:       shipping.Notes,
			Subtotal:    subtotal,
			DeliveryFee: fee,
			Total:       total,
		}
		created, err := repo.CreateOrder(ctx, candidate)
		if err != nil {
			if db.IsUniqueViolation(err, "idx_orders_order_number") {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = created
		break
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "could not allocate order number")
	}

	orderItems := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		productID := line.productID
		orderItems = append(orderItems, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   &productID,
			ProductName: line.productName,
			ColorName:   line.colorName,
			UnitPrice:   line.unitPrice,
			Quantity:    line.quantity,
		})
	}
	if err := repo.CreateOrderItems(ctx, orderItems); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
	}

	entry := &models.OrderTimeline{
		ID:      uuid.New(),
		OrderID: order.ID,
		Status:  enums.OrderStatusPending,
		Note:    "order created",
	}
	if err := repo.CreateTimelineEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create timeline entry")
	}

	return order, nil
}

func findOwnerCart(ctx context.Context, cartRepo cart.Repository, owner cart.Owner) (*models.Cart, error) {
	switch {
	case owner.UserID != nil:
		found, err := cartRepo.FindByUser(ctx, *owner.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		return found, nil
	case owner.SessionKey != "":
		found, err := cartRepo.FindBySessionKey(ctx, owner.SessionKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		return found, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner required")
	}
}

func validateShipping(shipping ShippingDetails) error {
	missing := []string{}
	if strings.TrimSpace(shipping.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(shipping.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(shipping.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(shipping.City) == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing shipping fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}

func newOrderView(order *models.Order) *OrderView {
	return &OrderView{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Subtotal:    order.Subtotal,
		DeliveryFee: order.DeliveryFee,
		Total:       order.Total,
		CreatedAt:   order.CreatedAt,
	}
}
